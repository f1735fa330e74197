// Copyright 2026 The Routeforge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command routectl works with declarative route manifests: listing the
// routes they define, compiling them into a persisted route cache, and
// clearing that cache.
//
//	routectl routes list --manifests ./routes
//	routectl cache build --manifests ./routes --dir /var/cache/app --mode production
//	routectl cache clear --dir /var/cache/app
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"routeforge.dev/router"
	"routeforge.dev/router/compiler"
	"routeforge.dev/router/loader"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "routectl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "routectl",
		Short:         "Inspect and compile declarative route manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRoutesCmd(), newCacheCmd())
	return root
}

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Work with route definitions",
	}
	cmd.AddCommand(newRoutesListCmd())
	return cmd
}

func newRoutesListCmd() *cobra.Command {
	var manifests []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the routes defined by the given manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, n, err := loadManifests(manifests)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METHOD\tPATH\tHANDLER\tNAME\tMIDDLEWARE")
			for _, info := range r.Routes() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					info.Method, info.Path, info.Handler, info.Name,
					strings.Join(info.Middleware, ","))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d routes\n", n)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&manifests, "manifests", "m", []string{"."}, "directories to scan for *.routes.yaml files")
	return cmd
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Build or clear the persisted route cache",
	}
	cmd.AddCommand(newCacheBuildCmd(), newCacheClearCmd())
	return cmd
}

func newCacheBuildCmd() *cobra.Command {
	var (
		manifests []string
		dir       string
		modeName  string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile manifests into a route cache artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := router.Mode(modeName)
			if mode != router.DevelopmentMode && mode != router.ProductionMode {
				return fmt.Errorf("unknown mode %q", modeName)
			}

			r, n, err := loadManifests(manifests)
			if err != nil {
				return err
			}

			art := r.CompileArtifact()
			issues := art.Validate(nil)
			for _, issue := range issues {
				fmt.Fprintln(cmd.ErrOrStderr(), issue)
			}
			if errs := compiler.Errors(issues); len(errs) > 0 {
				return fmt.Errorf("%d routes cannot be cached", len(errs))
			}

			cache, err := router.NewRouteCache(dir, router.WithCacheMode(mode))
			if err != nil {
				return err
			}
			if err := cache.Save(art); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cached %d routes to %s\n", n, cache.Path())
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&manifests, "manifests", "m", []string{"."}, "directories to scan for *.routes.yaml files")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "cache directory")
	cmd.Flags().StringVar(&modeName, "mode", string(router.ProductionMode), "cache mode (development or production)")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the route cache files for both modes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := router.NewRouteCache(dir)
			if err != nil {
				return err
			}
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "route cache cleared")
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "cache directory")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func loadManifests(roots []string) (*router.Router, int, error) {
	r, err := router.New()
	if err != nil {
		return nil, 0, err
	}
	ld := loader.New(loader.WithLogger(slog.Default()))
	n, err := ld.LoadDir(r, roots...)
	if err != nil {
		return nil, 0, err
	}
	return r, n, nil
}
