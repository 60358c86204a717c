package main

import (
	"log"
	"os"
	stdos "os"
)

func helper() {
	os.Exit(2)
}

func main() {
	defer helper()

	if len(os.Args) > 3 {
		log.Fatal("too many arguments") // want "avoid using log.Fatal in main.main"
	}
	if len(os.Args) > 2 {
		log.Fatalf("got %d arguments", len(os.Args)) // want "avoid using log.Fatalf in main.main"
	}
	if len(os.Args) > 1 {
		stdos.Exit(1) // want "avoid using os.Exit in main.main"
	}

	log.Println("ok")
	os.Exit(0) // want "avoid using os.Exit in main.main"
}
