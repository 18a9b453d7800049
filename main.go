package main

import (
	"log"

	"yashubustudio/intentclassifier/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("intentclassifier: %v", err)
	}
}
