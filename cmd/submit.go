package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"

	"github.com/openrescue/dispatch/config"
	"github.com/openrescue/dispatch/core/lifecycle"
	"github.com/openrescue/dispatch/core/model"
	"github.com/openrescue/dispatch/infra/mqtt"
)

var (
	submitName      string
	submitPhone     string
	submitSituation string
	submitLat       float64
	submitLon       float64
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Publish a test emergency request to the broker",
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitName, "name", "", "requester name")
	submitCmd.Flags().StringVar(&submitPhone, "phone", "", "requester phone")
	submitCmd.Flags().StringVar(&submitSituation, "situation", "", "free-text situation")
	submitCmd.Flags().Float64Var(&submitLat, "lat", 0, "latitude")
	submitCmd.Flags().Float64Var(&submitLon, "lon", 0, "longitude")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	if submitName == "" || submitPhone == "" {
		return fmt.Errorf("--name and --phone are required")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sub := lifecycle.Submission{Name: submitName, Phone: submitPhone, Situation: submitSituation}
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
		sub.Coordinates = &model.Coordinates{Lat: submitLat, Lon: submitLon}
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		return err
	}

	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = fmt.Sprintf("submit-%d", time.Now().UnixNano())
	opts, err := mqtt.NewClientOptions(mqttCfg)
	if err != nil {
		return err
	}
	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	if token := client.Publish(mqttCfg.SubmitTopic, 1, false, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	fmt.Printf("submitted request for %s to %s\n", submitName, mqttCfg.SubmitTopic)
	return nil
}
