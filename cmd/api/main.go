package main

import (
	"flag"
	"log"

	"github.com/dkschrei/ai-research-agent/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	builder, err := config.FromYAML(*configPath, []string{".env.local", ".env"})
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	agent := config.NewAgentWithBuilder(builder)

	if err := agent.Run(); err != nil {
		log.Fatal(err)
	}
}
