package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"turnos/ticket-service/internal/calls"
	"turnos/ticket-service/internal/config"
	"turnos/ticket-service/internal/httpapi"
	"turnos/ticket-service/internal/hub"
	"turnos/ticket-service/internal/store"
	"turnos/ticket-service/internal/store/file"
	"turnos/ticket-service/internal/store/memory"
	"turnos/ticket-service/internal/store/postgres"
	"turnos/ticket-service/internal/telemetry"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type eventEnvelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}

// eventChannels routes each store event to the hub channels that render it.
var eventChannels = map[string][]string{
	memory.EventTicketCreated:    {hub.ChannelDisplay, hub.ChannelDashboard},
	memory.EventTicketStarted:    {hub.ChannelDisplay, hub.ChannelDashboard},
	memory.EventTicketCompleted:  {hub.ChannelDisplay, hub.ChannelDashboard, hub.ChannelReports},
	memory.EventServiceCompleted: {hub.ChannelDashboard},
	memory.EventCustomerCalled:   {hub.ChannelDisplay, hub.ChannelDashboard},
	memory.EventCallingCleared:   {hub.ChannelDisplay, hub.ChannelDashboard},
	memory.EventTimeUpdated:      {hub.ChannelDisplay, hub.ChannelDashboard},
	memory.EventSettingsUpdated:  {hub.ChannelDashboard},
}

const eventTicketsOverdue = "tickets_overdue"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	shutdownTelemetry := telemetry.Setup("ticket-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var snapshots store.Snapshotter
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()
		pg := postgres.New(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("db schema: %v", err)
		}
		snapshots = pg
	} else {
		snapshots = file.New(cfg.StateFile)
	}

	h := hub.New()
	broadcast := func(eventType string, payload interface{}) {
		env := eventEnvelope{Type: eventType, Payload: payload, CreatedAt: time.Now()}
		data, err := json.Marshal(env)
		if err != nil {
			log.Printf("event encode error: %v", err)
			return
		}
		channels, ok := eventChannels[eventType]
		if !ok {
			channels = []string{hub.ChannelDashboard}
		}
		h.Broadcast(data, channels...)
	}

	st := memory.New(context.Background(), memory.Options{
		Snapshotter:  snapshots,
		Notifier:     broadcast,
		PasswordHash: cfg.ManagerPasswordHash,
	})

	callTimer := calls.NewTimer(cfg.CallTimeout, func(ticketID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := st.ClearCalling(ctx, store.TicketActionInput{TicketID: ticketID, OccurredAt: time.Now()}); err != nil {
			log.Printf("clear calling error: %v", err)
		}
	})
	defer callTimer.Cancel()

	handler := httpapi.NewHandler(st, callTimer)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute: cfg.RateLimitPerMinute,
		IPBurst:     cfg.RateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler.Routes())
	sockjsHandler := sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, "")
				continue
			}
			h.UpdateSubscription(client, parsed.Channel)
		}
	})
	mux.Handle("/realtime", sockjsHandler)
	mux.Handle("/realtime/", sockjsHandler)

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "ticket-service")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("ticket-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Overdue sweep: highlight only, never mutates ticket state.
	go func() {
		if cfg.OverdueScanInterval <= 0 {
			return
		}
		ticker := time.NewTicker(cfg.OverdueScanInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			overdue, err := st.OverdueTickets(ctx, time.Now())
			cancel()
			if err != nil {
				log.Printf("overdue sweep error: %v", err)
				continue
			}
			if len(overdue) == 0 {
				continue
			}
			env := eventEnvelope{Type: eventTicketsOverdue, Payload: overdue, CreatedAt: time.Now()}
			data, err := json.Marshal(env)
			if err != nil {
				log.Printf("event encode error: %v", err)
				continue
			}
			h.Broadcast(data, hub.ChannelDashboard)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
