package accessguard

import (
	"log/slog"
	"time"

	httpadapter "ballotbox/contexts/identity-access/access-guard/adapters/http"
	"ballotbox/contexts/identity-access/access-guard/adapters/memory"
	"ballotbox/contexts/identity-access/access-guard/adapters/sender"
	"ballotbox/contexts/identity-access/access-guard/application/commands"
	"ballotbox/contexts/identity-access/access-guard/application/workers"
	"ballotbox/contexts/identity-access/access-guard/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Counter commands.AttemptCounter
	Sweeper workers.Sweeper
	Store   *memory.Store
}

type Policy struct {
	LoginWindow            time.Duration
	LoginMaxAttempts       int
	CodeRequestWindow      time.Duration
	CodeRequestMaxAttempts int
	CodeTTL                time.Duration
	CodeVerifyMaxAttempts  int
}

type Dependencies struct {
	Attempts       ports.AttemptStore
	Codes          ports.CodeStore
	Sender         ports.CodeSender
	CodeGen        ports.CodeGenerator
	Clock          ports.Clock
	Policy         Policy
	BcryptCost     int
	SweepBatchSize int
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	counter := commands.AttemptCounter{
		Attempts: deps.Attempts,
		Clock:    deps.Clock,
		Logger:   deps.Logger,
	}
	codeSender := deps.Sender
	if codeSender == nil {
		codeSender = sender.LogSender{Logger: deps.Logger}
	}
	return Module{
		Handler: httpadapter.Handler{
			Login: commands.LoginGuard{
				Counter:     counter,
				Window:      deps.Policy.LoginWindow,
				MaxAttempts: deps.Policy.LoginMaxAttempts,
				Logger:      deps.Logger,
			},
			Codes: commands.CodeService{
				Counter:            counter,
				Codes:              deps.Codes,
				Sender:             codeSender,
				CodeGen:            deps.CodeGen,
				Clock:              deps.Clock,
				RequestWindow:      deps.Policy.CodeRequestWindow,
				RequestMaxAttempts: deps.Policy.CodeRequestMaxAttempts,
				CodeTTL:            deps.Policy.CodeTTL,
				VerifyMaxAttempts:  deps.Policy.CodeVerifyMaxAttempts,
				BcryptCost:         deps.BcryptCost,
				Logger:             deps.Logger,
			},
			Logger: deps.Logger,
		},
		Counter: counter,
		Sweeper: workers.Sweeper{
			Attempts:  deps.Attempts,
			Codes:     deps.Codes,
			Clock:     deps.Clock,
			BatchSize: deps.SweepBatchSize,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Attempts: store,
		Codes:    store,
		Clock:    store,
		Logger:   logger,
	})
	module.Store = store
	return module
}
