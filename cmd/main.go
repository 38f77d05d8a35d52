package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"pharmacy/internal/access"
	"pharmacy/internal/app"
	"pharmacy/internal/config"
	"pharmacy/internal/httpclient"
	"pharmacy/internal/inactivity"
	"pharmacy/internal/model"
	"pharmacy/internal/session"
	"pharmacy/internal/token"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const envPassword = "PHARMACY_PASSWORD"

const usage = `usage: pharmacy [-config file] <command> [args]

commands:
  login <username>          sign in (password from $PHARMACY_PASSWORD or stdin)
  logout                    close the session
  whoami                    show the current user and token expiry
  routes [ROLE]             list the menu; admins may simulate ROLE
  check <path> [ROLE]       evaluate navigation to path
  policy [ROLE]             evaluate every guarded route
  profile [field=value...]  show or update the profile
  watch                     log out after inactivity; each stdin line is activity`

func main() {

	_ = godotenv.Load(".env")

	cfg := config.GetConfig()
	log := setupSlog(cfg.Env)

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	application, err := app.New(ctx, *cfg, log, app.Options{
		Notifier: httpclient.NotifierFunc(func(kind httpclient.Kind, message string) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", kind, message)
		}),
		OnLoginRequired: func() {
			fmt.Fprintln(os.Stderr, "inicia sesión con: pharmacy login <usuario>")
		},
	})
	if err != nil {
		log.Error("failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer application.Stop()

	if err := run(ctx, application, args, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		application.Stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, args []string, in io.Reader, out io.Writer) error {
	cmd, args := args[0], args[1:]

	if cmd != "login" {
		// a failed restore leaves the session logged out
		_ = a.Start(ctx)
	}

	switch cmd {
	case "login":
		return login(ctx, a.Session, args, in, out)
	case "logout":
		a.Session.Logout()
		fmt.Fprintln(out, "sesión cerrada")
		return nil
	case "whoami":
		return whoami(a.Session, out)
	case "routes":
		if err := simulate(a.Session, args); err != nil {
			return err
		}
		for _, e := range a.Session.AvailableRoutes() {
			fmt.Fprintf(out, "%-22s %-28s %s\n", e.Name, e.Title, e.Icon)
		}
		return nil
	case "check":
		if len(args) == 0 {
			return errors.New("check: missing path")
		}
		if err := simulate(a.Session, args[1:]); err != nil {
			return err
		}
		d := a.Guard.Check(ctx, args[0])
		if d.Allow {
			fmt.Fprintf(out, "allow %s\n", args[0])
		} else {
			fmt.Fprintf(out, "redirect %s -> %s (%s)\n", args[0], d.Redirect, d.Reason)
		}
		return nil
	case "policy":
		if err := simulate(a.Session, args); err != nil {
			return err
		}
		for _, r := range a.Guard.Routes() {
			d := a.Guard.CheckRoute(ctx, r.Name)
			verdict := "allow"
			if !d.Allow {
				verdict = "deny (" + string(d.Reason) + ")"
			}
			fmt.Fprintf(out, "%-22s %-20s %s\n", r.Name, r.Path, verdict)
		}
		return nil
	case "profile":
		return profile(ctx, a.Session, args, out)
	case "watch":
		return watch(ctx, a, in, out)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func login(ctx context.Context, s *session.Store, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("login: missing username")
	}

	password, ok := os.LookupEnv(envPassword)
	if !ok {
		fmt.Fprint(out, "contraseña: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("login: read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	res := s.Login(ctx, model.Credentials{Username: args[0], Password: password})
	if !res.Success {
		return errors.New(res.Error)
	}
	fmt.Fprintf(out, "bienvenido, %s (%s)\n", res.User.FullName(), res.User.Role)
	return nil
}

func whoami(s *session.Store, out io.Writer) error {
	if !s.IsAuthenticated() {
		return errors.New("no hay sesión activa")
	}
	u := s.User()
	fmt.Fprintf(out, "usuario:  %s (%d)\n", u.Username, u.ID)
	fmt.Fprintf(out, "nombre:   %s\n", u.FullName())
	fmt.Fprintf(out, "rol:      %s\n", u.Role)
	if u.Departamento != "" {
		fmt.Fprintf(out, "depto:    %s\n", u.Departamento)
	}

	if claims, err := token.Inspect(s.AccessToken()); err == nil && !claims.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "expira:   %s\n", claims.ExpiresAt.Local().Format(time.RFC3339))
	}
	return nil
}

func simulate(s *session.Store, args []string) error {
	if len(args) == 0 {
		return nil
	}
	role := access.ParseRole(args[0])
	if !role.Known() {
		return fmt.Errorf("unknown role %q", args[0])
	}
	if s.UserRole() != access.RoleAdmin {
		return errors.New("solo un administrador puede simular roles")
	}
	s.SetSimulatedRole(role)
	return nil
}

func profile(ctx context.Context, s *session.Store, args []string, out io.Writer) error {
	if len(args) == 0 {
		u, err := s.FetchProfile(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s <%s> %s\n", u.FullName(), u.Email, u.Role)
		return nil
	}

	patch := make(map[string]any, len(args))
	for _, kv := range args {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return fmt.Errorf("profile: expected field=value, got %q", kv)
		}
		patch[k] = v
	}
	res := s.UpdateProfile(ctx, patch)
	if !res.Success {
		return errors.New(res.Error)
	}
	fmt.Fprintln(out, "perfil actualizado")
	return nil
}

func watch(ctx context.Context, a *app.App, in io.Reader, out io.Writer) error {
	done := make(chan struct{})
	m := a.NewMonitor(
		func(remaining time.Duration) {
			fmt.Fprintf(out, "la sesión se cerrará en %s; escribe \"extend\" para continuar\n",
				inactivity.FormatRemaining(remaining))
		},
		func() { close(done) },
	)
	if !m.Start() {
		return errors.New("no hay sesión activa")
	}
	defer m.Stop()

	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) == "extend" {
				m.Extend()
				continue
			}
			m.Touch()
		}
	}()

	select {
	case <-done:
		fmt.Fprintln(out, "sesión cerrada por inactividad")
	case <-ctx.Done():
	}
	return nil
}

func setupSlog(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return log
}
