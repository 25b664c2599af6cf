package cmd

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/BioHazard786/posebridge/internal/app"
	"github.com/BioHazard786/posebridge/internal/config"
	"github.com/BioHazard786/posebridge/internal/ui"
	"github.com/BioHazard786/posebridge/internal/webrtc"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		ConfigFile: flagConfig,
		Domain:     flagDomain,
		BrokerURL:  flagBrokerURL,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return nil, app.NewError("load config", err)
	}
	return cfg, nil
}

// openTransport registers peerID with the broker; empty asks the broker to
// assign one.
func openTransport(ctx context.Context, cfg *config.Config, peerID string) (*webrtc.Transport, error) {
	stop := ui.RunConnectionSpinner("Connecting to broker...")
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	tr, err := webrtc.Open(ctx, cfg, peerID)
	if err != nil {
		return nil, app.WrapError("connect to broker", err, cfg.BrokerURL)
	}
	return tr, nil
}

// runScreen drives h on loop while program owns the terminal. The loop
// stopping closes the screen and the screen quitting stops the loop.
func runScreen(ctx context.Context, loop *app.Loop, h app.Handler, program *tea.Program) error {
	go func() {
		loop.Run(ctx, h)
		program.Quit()
	}()

	_, err := program.Run()
	loop.Post(app.QuitEvent{})
	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
	}
	return err
}
