package main

import (
	"flag"
	"log"

	"github.com/danmuck/webridge/internal/config"
)

func main() {
	kind := flag.String("kind", "bridge", "config kind: bridge|page")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			switch *kind {
			case "bridge":
				path = "cmd/bridgectl/config.toml"
			case "page":
				path = "cmd/pagectl/script.toml"
			default:
				log.Fatalf("unknown kind: %s", *kind)
			}
		}

		switch *kind {
		case "bridge":
			if _, err := config.LoadBridgeConfig(path); err != nil {
				log.Fatal(err)
			}
		case "page":
			if _, err := config.LoadPageScript(path); err != nil {
				log.Fatal(err)
			}
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		switch *kind {
		case "bridge":
			target = "cmd/bridgectl/config.toml"
		case "page":
			target = "cmd/pagectl/script.toml"
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
	}

	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, target)
}
