package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"slicemeow/internal/auth"
	"slicemeow/internal/catalog"
	"slicemeow/internal/grpcserver"
	"slicemeow/internal/logger"
	"slicemeow/internal/store"
	"slicemeow/pkg/models"
	"slicemeow/pkg/utils"
)

type Globals struct {
	Config string `help:"YAML config file." env:"SLICEMEOW_CONFIG" type:"path"`
}

type env struct {
	cfg     utils.Config
	log     *zap.Logger
	backend store.Backend
}

func (g *Globals) open(ctx context.Context) (*env, error) {
	cfg, err := utils.Load(g.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	backend, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &env{cfg: cfg, log: log, backend: backend}, nil
}

func (e *env) close() {
	_ = e.backend.Close()
	_ = e.log.Sync()
}

type CreateAdminCmd struct {
	Email    string `arg:"" help:"Admin email address."`
	Password string `arg:"" help:"Admin password."`
}

func (c *CreateAdminCmd) Run(g *Globals) error {
	ctx := context.Background()
	email := strings.TrimSpace(strings.ToLower(c.Email))
	password := strings.TrimSpace(c.Password)
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", c.Email)
	}
	if password == "" {
		return fmt.Errorf("password required")
	}

	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	hash, err := auth.HashPassword(password, auth.AdminCost)
	if err != nil {
		return err
	}
	existing, err := e.backend.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := e.backend.UpsertUser(ctx, auth.User{Email: email, PasswordHash: hash, Role: auth.RoleAdmin}); err != nil {
		return err
	}

	if existing != nil {
		fmt.Printf("updated %s: role=admin, password reset\n", email)
	} else {
		fmt.Printf("created admin %s\n", email)
	}
	return nil
}

type MigratePasswordsCmd struct{}

func (c *MigratePasswordsCmd) Run(g *Globals) error {
	ctx := context.Background()
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	n, err := auth.MigratePasswords(ctx, e.backend, auth.AdminCost, e.log)
	if err != nil {
		return err
	}
	fmt.Printf("hashed %d plaintext password(s)\n", n)
	return nil
}

type MigrateLegacyCmd struct{}

func (c *MigrateLegacyCmd) Run(g *Globals) error {
	ctx := context.Background()
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	n, err := e.backend.MigrateLegacyFields(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("rewrote %d document(s)\n", n)
	return nil
}

type ExportCmd struct {
	Collection string `help:"Collection to export." enum:"movies,webseries" default:"movies"`
	Out        string `help:"Output CSV path; stdout when empty." type:"path"`
}

func (c *ExportCmd) Run(g *Globals) error {
	ctx := context.Background()
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	out := os.Stdout
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	n, err := catalog.ExportCSV(ctx, e.backend, models.Collection(c.Collection), out)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %d record(s) from %s\n", n, c.Collection)
	return nil
}

type ImportCmd struct {
	Collection string `help:"Target collection." enum:"movies,webseries" default:"movies"`
	In         string `arg:"" help:"Input CSV path." type:"existingfile"`
}

func (c *ImportCmd) Run(g *Globals) error {
	ctx := context.Background()
	e, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	f, err := os.Open(c.In)
	if err != nil {
		return err
	}
	defer f.Close()

	res := catalog.MovieResource
	if models.Collection(c.Collection) == models.CollectionWebSeries {
		res = catalog.SeriesResource
	}

	result, err := catalog.ImportCSV(ctx, e.backend, res, f)
	if err != nil {
		return err
	}
	for _, s := range result.Skipped {
		e.log.Warn("row skipped", zap.String("reason", s))
	}
	fmt.Printf("imported %d record(s), skipped %d\n", result.Imported, len(result.Skipped))
	return nil
}

type GetCmd struct {
	Addr       string `help:"gRPC server address." default:"127.0.0.1:9090"`
	Collection string `help:"Collection to read." enum:"movies,webseries" default:"movies"`
	ID         string `arg:"" optional:"" help:"Record id; lists the collection when empty."`
	Limit      int    `help:"Page size when listing." default:"20"`
	Offset     int    `help:"Page offset when listing."`
}

func (c *GetCmd) Run(g *Globals) error {
	conn, err := grpc.NewClient(c.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := grpcserver.NewClient(conn)
	var out any
	if c.ID != "" {
		out, err = client.GetRecord(ctx, &grpcserver.GetRecordRequest{Collection: c.Collection, ID: c.ID})
	} else {
		out, err = client.ListRecords(ctx, &grpcserver.ListRecordsRequest{
			Collection: c.Collection,
			Limit:      c.Limit,
			Offset:     c.Offset,
		})
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type WatchCmd struct {
	Addr   string `help:"TCP feed address." default:"127.0.0.1:7070"`
	Pretty bool   `help:"Pretty print JSON events." default:"true" negatable:""`
}

func (c *WatchCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		if err := c.watch(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "feed disconnected: %v\n", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second): // reconnect
		}
	}
}

func (c *WatchCmd) watch(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.Addr, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	fmt.Fprintf(os.Stderr, "connected to %s\n", c.Addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		if !c.Pretty {
			fmt.Println(string(line))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return fmt.Errorf("connection closed")
}

var cli struct {
	Globals

	CreateAdmin      CreateAdminCmd      `cmd:"" help:"Create an admin account or promote an existing one."`
	MigratePasswords MigratePasswordsCmd `cmd:"" help:"Hash every stored plaintext password."`
	MigrateLegacy    MigrateLegacyCmd    `cmd:"" aliases:"migrate-featured" help:"Rewrite documents stored in the legacy field layout."`
	Export           ExportCmd           `cmd:"" help:"Export a collection as CSV."`
	Import           ImportCmd           `cmd:"" help:"Import records from CSV."`
	Get              GetCmd              `cmd:"" help:"Read records through the gRPC API."`
	Watch            WatchCmd            `cmd:"" help:"Print the live catalog event feed."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("catalogctl"),
		kong.Description("Slice Meow catalog administration."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
