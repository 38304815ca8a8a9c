// Command raiden-host is an interactive terminal client for the line-oriented
// USB-CDC command surface: it opens the serial device, echoes typed lines to
// the MCU, and prints back whatever it responds with.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"

	"github.com/AdamLaurie/raiden-pico/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	fmt.Println("Raiden Pico Host")
	fmt.Println("================")

	cfg := serial.DefaultConfig(*device)
	fmt.Printf("Connecting to %s...\n", *device)
	port, err := serial.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open %s: %v\n", *device, err)
		os.Exit(1)
	}
	defer port.Close()
	fmt.Println("Connected.")

	reader := bufio.NewReader(port)
	go readLoop(reader)

	fmt.Println("Enter commands (HELP for reference, quit to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" || line == "q" {
			fmt.Println("Goodbye!")
			return
		}

		if *verbose {
			if toks, err := shlex.Split(line); err == nil {
				fmt.Printf("[tokens: %v]\n", toks)
			}
		}

		if _, err := port.Write([]byte(line + "\r\n")); err != nil {
			fmt.Fprintf(os.Stderr, "Error: write failed: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

// readLoop prints each line the MCU sends back, until the port closes.
func readLoop(r *bufio.Reader) {
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			fmt.Println(strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return
		}
	}
}
