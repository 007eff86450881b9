// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Command crush is a thin external wrapper around the core package:
// parse, map, convert, and encode subcommands, exit code 0 on success
// and non-zero on any error surfaced from the core.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ceph/go-crush"
	"github.com/ceph/go-crush/chooseargs"
	"github.com/ceph/go-crush/engine"
	"github.com/ceph/go-crush/loader"
	"github.com/ceph/go-crush/wire"
)

var rootCmd = &cobra.Command{
	Use:   "crush",
	Short: "Deterministic weighted placement over a typed device hierarchy",
	Long: `crush loads a JSON-shaped map record, maps placement requests against
it, and converts between the JSON and binary representations of a map.`,
}

func main() {
	rootCmd.AddCommand(parseCmd(), mapCmd(), convertCmd(), encodeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func loadMap(path string, verbose, backwardCompat bool) (*crush.Map, *chooseargs.Library, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var decoded interface{}
	if json.Unmarshal(raw, &decoded) == nil {
		m := crush.New(crush.Options{
			Verbose:               verbose,
			BackwardCompatibility: backwardCompat,
			Logger:                newLogger(verbose),
		})
		lib := chooseargs.NewLibrary()
		if err := loader.Parse(m, loader.FromAny(decoded), lib); err != nil {
			return nil, nil, err
		}
		return m, lib, nil
	}

	m, lib, err := wire.Decode(raw, crush.Options{
		Verbose:               verbose,
		BackwardCompatibility: backwardCompat,
		Logger:                newLogger(verbose),
	})
	if err != nil {
		return nil, nil, err
	}
	if lib == nil {
		lib = chooseargs.NewLibrary()
	}
	return m, lib, nil
}

func parseCmd() *cobra.Command {
	var verbose, backwardCompat bool
	cmd := &cobra.Command{
		Use:   "parse <map.json>",
		Short: "Load a JSON-shaped map record and report whether it is well-formed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, err := loadMap(args[0], verbose, backwardCompat)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable development logging")
	cmd.Flags().BoolVar(&backwardCompat, "backward-compatibility", false, "accept compat-only rule steps and tunables")
	return cmd
}

func parseWeightOverrides(m *crush.Map, spec string) ([]uint32, error) {
	if spec == "" {
		return nil, nil
	}
	weights := make([]uint32, m.MaxDeviceID()+1)
	for i := range weights {
		weights[i] = 1 << 16
	}
	for _, pair := range strings.Split(spec, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed weight override %q", pair)
		}
		dev, ok := m.DeviceByName(kv[0])
		if !ok {
			return nil, fmt.Errorf("unknown device %q", kv[0])
		}
		f, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			return nil, fmt.Errorf("weight override %q: %w", pair, err)
		}
		weights[dev.ID] = uint32(f * 65536)
	}
	return weights, nil
}

func mapCmd() *cobra.Command {
	var verbose, backwardCompat bool
	var rule string
	var x int32
	var replicas int
	var weightSpec string
	var chooseArgsName string

	cmd := &cobra.Command{
		Use:   "map <map.json|map.bin>",
		Short: "Map a placement request against a loaded map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, lib, err := loadMap(args[0], verbose, backwardCompat)
			if err != nil {
				return err
			}

			weights, err := parseWeightOverrides(m, weightSpec)
			if err != nil {
				return err
			}

			var resolved map[int32]*crush.ChooseArg
			if chooseArgsName != "" {
				set, err := lib.ByName(chooseArgsName)
				if err != nil {
					return err
				}
				resolved = set.Resolve()
			}

			result, err := engine.Map(m, rule, x, replicas, weights, resolved)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range result {
				if id == crush.ItemNone {
					fmt.Fprintln(out, "none")
					continue
				}
				if dev, ok := m.Devices[id]; ok {
					fmt.Fprintln(out, dev.Name)
				} else {
					fmt.Fprintln(out, id)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable development logging")
	cmd.Flags().BoolVar(&backwardCompat, "backward-compatibility", false, "accept compat-only rule steps and tunables")
	cmd.Flags().StringVar(&rule, "rule", "", "rule name to evaluate")
	cmd.Flags().Int32Var(&x, "x", 0, "mapping input (object id / PG id)")
	cmd.Flags().IntVar(&replicas, "replicas", 1, "number of replicas to place")
	cmd.Flags().StringVar(&weightSpec, "weights", "", "comma-separated device_name=weight overrides")
	cmd.Flags().StringVar(&chooseArgsName, "choose-args", "", "named choose-args set to apply")
	cmd.MarkFlagRequired("rule")
	return cmd
}

func convertCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "convert <map.bin>",
		Short: "Decode a binary map and print its JSON-shaped record",
		Long: `convert only implements the binary decode path: a text
compiler front end, if one exists, is a separate external tool.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			m, _, err := wire.Decode(raw, crush.Options{Verbose: verbose, Logger: newLogger(verbose)})
			if err != nil {
				return err
			}
			rendered, err := json.MarshalIndent(loader.DumpJSON(m).ToAny(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(rendered))
			return nil
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable development logging")
	return cmd
}

func encodeCmd() *cobra.Command {
	var verbose, backwardCompat bool
	var out string
	var straw2, chooseLeafStable, chooseLeafVaryR, chooseArgsFeature bool

	cmd := &cobra.Command{
		Use:   "encode <map.json>",
		Short: "Parse a JSON-shaped map record and write its binary encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, lib, err := loadMap(args[0], verbose, backwardCompat)
			if err != nil {
				return err
			}

			var features uint64
			if straw2 {
				features |= wire.FeatureStraw2
			}
			if chooseLeafStable {
				features |= wire.FeatureChooseLeafStable
			}
			if chooseLeafVaryR {
				features |= wire.FeatureChooseLeafVaryR
			}
			var args2 *chooseargs.Library
			if chooseArgsFeature {
				features |= wire.FeatureChooseArgs
				args2 = lib
			}

			data, err := wire.Encode(m, features, args2)
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable development logging")
	cmd.Flags().BoolVar(&backwardCompat, "backward-compatibility", false, "accept compat-only rule steps and tunables")
	cmd.Flags().StringVar(&out, "out", "", "output path (defaults to stdout)")
	cmd.Flags().BoolVar(&straw2, "feature-straw2", true, "set the straw2 feature bit")
	cmd.Flags().BoolVar(&chooseLeafStable, "feature-chooseleaf-stable", true, "set the chooseleaf_stable feature bit")
	cmd.Flags().BoolVar(&chooseLeafVaryR, "feature-chooseleaf-vary-r", true, "set the chooseleaf_vary_r feature bit")
	cmd.Flags().BoolVar(&chooseArgsFeature, "feature-choose-args", false, "embed the parsed choose_args library")
	return cmd
}
