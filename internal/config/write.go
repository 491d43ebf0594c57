package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fieldComments annotate the file written by WriteDefault, keyed by YAML path.
var fieldComments = map[string]string{
	"version":                "Config file format version",
	"data_dir":               "Directory holding the author key and the local document store",
	"relay":                  "Redis relay that peers sync through",
	"log":                    "Logs go to stderr unless a file is set, never to the chat output",
	"log.level":              "debug, info, warn or error",
	"log.format":             "console or json",
	"metrics.addr":           "Serve /healthz and /metrics on this address, e.g. 127.0.0.1:9464 (empty disables)",
	"receive":                "How long to wait for a message's content to arrive before giving up on it",
	"receive.retry_attempts": "Fetches retried after the first one",
}

// WriteDefault writes a commented default configuration to path.
// An existing file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	var doc yaml.Node
	if err := doc.Encode(Default()); err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	annotate(&doc, "")

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// annotate attaches fieldComments to the keys of a mapping node, recursively.
func annotate(n *yaml.Node, prefix string) {
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		path := key.Value
		if prefix != "" {
			path = prefix + "." + key.Value
		}
		if c, ok := fieldComments[path]; ok {
			key.HeadComment = c
		}
		annotate(value, path)
	}
}
