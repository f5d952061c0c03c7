package agent

import (
	"context"

	"github.com/Faultbox/provelslice/internal/config"
	"github.com/Faultbox/provelslice/internal/printer"
)

// Serve runs the agent described by cfg until ctx is canceled. settings may
// be nil.
func Serve(ctx context.Context, cfg *config.Config, settings Settings, version string) error {
	params, err := cfg.Params()
	if err != nil {
		return err
	}
	params.Emit.Version = version

	srv := NewServer(Options{
		Params:    params,
		Settings:  settings,
		PrinterIP: cfg.Printer.Address,
		NewUploader: func(address string) (Uploader, error) {
			return printer.NewDuetClient(address, cfg.Printer.Password)
		},
	})
	return ListenAndServe(ctx, cfg.Agent.Listen, cfg.Agent.MaxConnections, srv)
}
