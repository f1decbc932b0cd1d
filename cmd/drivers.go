package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openrescue/dispatch/config"
	"github.com/openrescue/dispatch/core/dispatch"
)

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "Driver related commands",
}

var driversLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registered drivers",
	RunE:  runDriversLs,
}

func init() {
	driversCmd.AddCommand(driversLsCmd)
	rootCmd.AddCommand(driversCmd)
}

func runDriversLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	addr := cfg.API.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	cli := &http.Client{Timeout: 5 * time.Second}
	resp, err := cli.Get(fmt.Sprintf("http://%s/api/drivers", addr))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Println("failed to close response body:", cerr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	var views []dispatch.DriverView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		return err
	}
	for _, v := range views {
		status := "available"
		if !v.Available {
			status = "busy"
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", v.ID, v.Name, v.VehicleType, status)
	}
	return nil
}
