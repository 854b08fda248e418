package main

import (
	"bufio"
	"flag"
	"log"
	"os"

	"github.com/crazyharmony/traf-exercize/pkg/pcap"
)

func main() {
	output := flag.String("o", "traf.txt", "Output capture log path.")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("Usage: %s [-o output] <capture.pcap>", os.Args[0])
	}
	input := flag.Arg(0)

	in, err := os.Open(input)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer in.Close()

	out, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	written, err := pcap.NewConverter().Convert(in, w)
	if err != nil {
		log.Fatalf("Conversion failed after %d records: %v", written, err)
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("Failed to flush output: %v", err)
	}

	log.Printf("Wrote %d records from '%s' to '%s'.", written, input, *output)
}
