package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openrescue/dispatch/config"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Register the configured seed drivers against a running engine",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	drivers := cfg.Seed.ModelDrivers()
	if len(drivers) == 0 {
		return fmt.Errorf("no seed drivers in %s", cfgPath)
	}

	addr := cfg.API.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	cli := &http.Client{Timeout: 5 * time.Second}
	for _, d := range drivers {
		payload, err := json.Marshal(d)
		if err != nil {
			return err
		}
		resp, err := cli.Post(fmt.Sprintf("http://%s/api/drivers", addr), "application/json", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Println("failed to close response body:", cerr)
		}
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("seed %s: unexpected status %s", d.ID, resp.Status)
		}
		fmt.Printf("seeded driver %s (%s)\n", d.ID, d.VehicleType)
	}
	return nil
}
