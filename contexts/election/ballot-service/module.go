package ballotservice

import (
	"log/slog"
	"time"

	httpadapter "ballotbox/contexts/election/ballot-service/adapters/http"
	"ballotbox/contexts/election/ballot-service/adapters/memory"
	"ballotbox/contexts/election/ballot-service/application/commands"
	"ballotbox/contexts/election/ballot-service/application/queries"
	"ballotbox/contexts/election/ballot-service/application/workers"
	"ballotbox/contexts/election/ballot-service/ports"
)

type Module struct {
	Handler          httpadapter.Handler
	OutboxRelay      workers.OutboxRelay
	TokenSweeper     workers.TokenSweeper
	TurnoutProjector workers.TurnoutProjector
	Store            *memory.Store
}

type Dependencies struct {
	Elections ports.ElectionReader
	Voters    ports.VoterReader
	Tokens    ports.TokenRepository
	// Ballots may be nil; redemption then fails with
	// ErrStorageTransactionUnsupported instead of running non-atomically.
	Ballots   ports.BallotUnitOfWork
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	// Subscriber and Turnout feed the turnout projection; either may be nil
	// in processes that do not run it.
	Subscriber ports.EventSubscriber
	Turnout    ports.TurnoutStore
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Secrets    ports.SecretGenerator

	TokenTTL            time.Duration
	RequireRegistration bool
	SweepBatchSize      int
	Logger              *slog.Logger
}

func NewModule(deps Dependencies) Module {
	gate := queries.ElectionGate{
		Elections:           deps.Elections,
		RequireRegistration: deps.RequireRegistration,
		Logger:              deps.Logger,
	}
	tokenUseCase := commands.TokenUseCase{
		Gate:     gate,
		Voters:   deps.Voters,
		Tokens:   deps.Tokens,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Secrets:  deps.Secrets,
		TokenTTL: deps.TokenTTL,
		Logger:   deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Ballots: deps.Ballots,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Secrets: deps.Secrets,
		Logger:  deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Gate:    gate,
			Turnout: queries.TurnoutQuery{Turnout: deps.Turnout},
			Tokens:  tokenUseCase,
			Votes:   voteUseCase,
			Logger:  deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		TokenSweeper: workers.TokenSweeper{
			Tokens:    deps.Tokens,
			Clock:     deps.Clock,
			BatchSize: deps.SweepBatchSize,
			Logger:    deps.Logger,
		},
		TurnoutProjector: workers.TurnoutProjector{
			Subscriber: deps.Subscriber,
			Turnout:    deps.Turnout,
			Clock:      deps.Clock,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory store. Publisher and
// Subscriber are left nil; callers that run the relay or the projector must
// set them.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Elections: store,
		Voters:    store,
		Tokens:    store,
		Ballots:   store,
		Outbox:    store,
		Turnout:   store,
		Clock:     store,
		IDGen:     store,
		Secrets:   store,
		TokenTTL:  commands.DefaultTokenTTL,
		Logger:    logger,
	})
	module.Store = store
	return module
}
