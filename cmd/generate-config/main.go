package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/archive-ledger/internal/config"
)

func main() {
	yamlData, err := yaml.Marshal(config.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating YAML: %v\n", err)
		os.Exit(1)
	}

	header := "# Archive Ledger Configuration Example\n" +
		"# Copy this file to config.yaml and customize as needed.\n" +
		"# Secrets come from the environment: " + config.EnvDBDSN + ", " + config.EnvEd25519PubKey + ", " +
		config.EnvClerkKey + ", " + config.EnvS3AccessKey + ", " + config.EnvS3SecretKey + "\n\n"
	output := header + string(yamlData)

	outputFile := "config.example.yaml"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}

	if outputFile == "-" {
		fmt.Print(output)
		return
	}
	if err := os.WriteFile(outputFile, []byte(output), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}
