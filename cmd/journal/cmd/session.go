package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcadapter "github.com/simaogato/tradejournal-backend/internal/adapter/grpc"
	"github.com/simaogato/tradejournal-backend/internal/adapter/session"
	"github.com/simaogato/tradejournal-backend/internal/config"
	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/logger"
	"github.com/simaogato/tradejournal-backend/internal/usecase/settings"
	"github.com/simaogato/tradejournal-backend/internal/usecase/tradestore"
)

// syncTimeout bounds the wait for the first snapshots of a one-shot command
const syncTimeout = 5 * time.Second

// journalSession is a connected client with both stores subscribed
type journalSession struct {
	cfg      *config.Config
	conn     *grpclib.ClientConn
	userID   string
	items    []domain.ChecklistItem
	trades   *tradestore.Store
	settings *settings.Store

	tradeSub    *tradestore.Subscription
	settingsSub *settings.Subscription
	closeLog    func() error
}

// openSession loads the configuration, resolves the identity and subscribes
// both stores. Messages meant for the user go to out.
// Logic:
//  1. A configured token is used as is; otherwise the server issues an anonymous one,
//     printed to out only since log files outlive the session
//  2. Settings subscribe before trades so the balance is known when trades arrive
//  3. Waits up to syncTimeout for the first snapshot of each store
func openSession(ctx context.Context, out io.Writer) (*journalSession, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCloser, err := logger.Setup(cfg.Log.Options())
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	capital, err := cfg.Journal.Capital()
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	items, err := cfg.Journal.Items()
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	opts := append(grpcadapter.DialOptions(), grpclib.WithTransportCredentials(insecure.NewCredentials()))
	conn, err := grpclib.NewClient(cfg.Journal.RemoteAddr, opts...)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("connect to %s: %w", cfg.Journal.RemoteAddr, err)
	}

	s := &journalSession{cfg: cfg, conn: conn, items: items, closeLog: logCloser.Close}

	remote, provider, err := newRemote(conn, cfg.Journal.Token)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.userID, err = provider.UserID(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if cfg.Journal.Token == "" {
		token, err := provider.Token(ctx)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("resolve identity: %w", err)
		}
		logger.Info("Signed in anonymously as %s", s.userID)
		fmt.Fprintf(out, "Signed in anonymously as %s; set JOURNAL_TOKEN=%s to keep this identity\n", s.userID, token)
	}

	s.settings = settings.NewStore(remote, settings.Config{DefaultStartingCapital: capital})
	s.trades = tradestore.NewStore(remote, tradestore.Config{ChecklistSize: len(items)})

	settingsReady := firstChange(s.settings.OnChange)
	tradesReady := firstChange(s.trades.OnChange)

	if s.settingsSub, err = s.settings.Subscribe(ctx, s.userID); err != nil {
		s.Close()
		return nil, err
	}
	if s.tradeSub, err = s.trades.Subscribe(ctx, s.userID); err != nil {
		s.Close()
		return nil, err
	}

	timeout := time.After(syncTimeout)
	for _, ready := range []<-chan struct{}{settingsReady, tradesReady} {
		select {
		case <-ready:
		case <-timeout:
			logger.Error("Timed out waiting for the first snapshot, showing local state")
			return s, nil
		case <-ctx.Done():
			s.Close()
			return nil, ctx.Err()
		}
	}
	return s, nil
}

// newRemote builds the document store client and the identity behind it
func newRemote(conn *grpclib.ClientConn, token string) (*grpcadapter.Client, session.Provider, error) {
	if token != "" {
		provider, err := session.NewStatic(token)
		if err != nil {
			return nil, nil, fmt.Errorf("journal token: %w", err)
		}
		return grpcadapter.NewClient(conn, provider), provider, nil
	}

	base := grpcadapter.NewClient(conn, nil)
	provider := session.NewAnonymous(base.SignInAnonymously)
	return base.WithProvider(provider), provider, nil
}

// firstChange returns a channel closed by the first change reported through onChange
func firstChange[T any](onChange func(func(T)) func()) <-chan struct{} {
	ready := make(chan struct{})
	var once sync.Once
	var unregister func()
	var mu sync.Mutex

	mu.Lock()
	unregister = onChange(func(T) {
		once.Do(func() {
			close(ready)
			go func() {
				mu.Lock()
				defer mu.Unlock()
				unregister()
			}()
		})
	})
	mu.Unlock()
	return ready
}

// Close cancels the subscriptions and releases the connection
func (s *journalSession) Close() {
	if s.tradeSub != nil {
		s.tradeSub.Cancel()
	}
	if s.settingsSub != nil {
		s.settingsSub.Cancel()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	if s.closeLog != nil {
		s.closeLog()
	}
}
