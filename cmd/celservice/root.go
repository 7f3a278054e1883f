package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/MaxRadzey/celservice/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := &options{cfg: config.New()}

	root := &cobra.Command{
		Use:           "celservice",
		Short:         "Parse and deparse CEL expressions",
		Long:          `celservice converts CEL expression text to syntax trees and back, as a server or from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config (CONFIG_PATH)")
	root.PersistentFlags().StringVarP(&opts.cfg.LogLevel, "log-level", "l", opts.cfg.LogLevel, "log level")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newParseCmd(opts))
	root.AddCommand(newDeparseCmd(opts))
	return root
}

// readInputs возвращает аргументы или, если их нет, непустые строки из r.
func readInputs(args []string, r io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}
