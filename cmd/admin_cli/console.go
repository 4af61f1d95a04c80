package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"keepsake/internal/config"
	"keepsake/internal/repository"
	"keepsake/internal/service"
)

type consoleCLI struct {
	ctx        context.Context
	out        io.Writer
	lines      <-chan string
	logger     *zap.Logger
	auth       *service.AuthService
	gate       *service.AdminGate
	moderation *service.ModerationService
}

func newConsoleCLI(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	pool *pgxpool.Pool,
	userSvc *service.UserService,
	roleRepo repository.RoleRepository,
) *consoleCLI {
	sessions, events := newSessionBackends(ctx, cfg, logger)
	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
	)
	limiter := service.NewLoginLimiter(time.Duration(cfg.LoginWindowMinutes)*time.Minute, cfg.LoginMaxAttempts)
	auth := service.NewAuthService(logger, userSvc, roleRepo, jwtSvc, sessions, events, limiter)

	return &consoleCLI{
		ctx:        ctx,
		out:        os.Stdout,
		lines:      readLines(),
		logger:     logger,
		auth:       auth,
		gate:       service.NewAdminGate(logger, auth),
		moderation: service.NewModerationService(logger, repository.NewPgMessageRepository(pool)),
	}
}

func (c *consoleCLI) run() error {
	for {
		token, ok := c.login()
		if !ok {
			return nil
		}
		again, err := c.moderate(token)
		if err != nil || !again {
			return err
		}
	}
}

// login pide credenciales hasta obtener una sesion. Devuelve false en EOF.
func (c *consoleCLI) login() (string, bool) {
	for {
		fmt.Fprintln(c.out, "===== Moderacion =====")
		email, ok := c.prompt("Email: ")
		if !ok {
			return "", false
		}
		password, ok := c.prompt("Password: ")
		if !ok {
			return "", false
		}

		_, pair, err := c.auth.SignIn(c.ctx, email, password)
		switch {
		case err == nil:
			return pair.AccessToken, true
		case errors.Is(err, service.ErrInvalidCredentials):
			fmt.Fprintln(c.out, "Credenciales invalidas.")
		case errors.Is(err, service.ErrRateLimited):
			fmt.Fprintln(c.out, "Demasiados intentos, espera unos minutos.")
		default:
			fmt.Fprintf(c.out, "No se pudo iniciar sesion: %v\n", err)
		}
	}
}

func (c *consoleCLI) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	select {
	case <-c.ctx.Done():
		return "", false
	case line, ok := <-c.lines:
		return strings.TrimSpace(line), ok
	}
}

// moderate corre una activacion de la consola. Devuelve true si hay que
// volver al login.
func (c *consoleCLI) moderate(token string) (bool, error) {
	console := service.NewAdminConsole(c.logger, c.gate, c.moderation, token)
	defer console.Close()

	if err := console.Activate(c.ctx); err != nil {
		renderView(c.out, console.Snapshot())
		if errors.Is(err, service.ErrUnauthenticated) || errors.Is(err, service.ErrForbidden) {
			return true, nil
		}
	} else {
		renderView(c.out, console.Snapshot())
	}
	printHelp(c.out)

	for {
		select {
		case <-c.ctx.Done():
			return false, nil
		case <-console.Changes():
			view := console.Snapshot()
			if view.Status == service.ConsoleUnauthenticated || view.Status == service.ConsoleForbidden {
				fmt.Fprintln(c.out, "\nLa sesion ya no es valida. Volviendo al login.")
				return true, nil
			}
		case line, ok := <-c.lines:
			if !ok {
				_ = console.Logout(c.ctx)
				return false, nil
			}
			cmd, arg := parseCommand(line)
			switch cmd {
			case "":
			case "r":
				if err := console.Refresh(c.ctx); err != nil {
					c.logger.Warn("refresh failed", zap.Error(err))
				}
				renderView(c.out, console.Snapshot())
			case "d":
				c.deleteRow(console, arg)
			case "q":
				if err := console.Logout(c.ctx); err != nil {
					fmt.Fprintf(c.out, "Error al cerrar sesion: %v\n", err)
				}
				fmt.Fprintln(c.out, "Sesion cerrada.")
				return true, nil
			default:
				printHelp(c.out)
			}
		}
	}
}

func (c *consoleCLI) deleteRow(console *service.AdminConsole, arg string) {
	view := console.Snapshot()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(view.Messages) {
		fmt.Fprintln(c.out, "Fila invalida.")
		return
	}
	id := view.Messages[n-1].ID
	if err := console.Delete(c.ctx, id); err != nil {
		fmt.Fprintf(c.out, "No se pudo borrar la fila %d: %v\n", n, err)
	}
	renderView(c.out, console.Snapshot())
}

// parseCommand separa "d 3" en ("d", "3").
func parseCommand(line string) (string, string) {
	fields := strings.Fields(strings.ToLower(line))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	}
	return fields[0], fields[1]
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "[r] recargar  [d <n>] borrar fila n  [q] cerrar sesion")
}

func renderView(w io.Writer, view service.ConsoleView) {
	switch view.Status {
	case service.ConsoleUnauthenticated:
		fmt.Fprintln(w, "No hay sesion activa.")
		return
	case service.ConsoleForbidden:
		fmt.Fprintln(w, "Esta cuenta no tiene acceso a la moderacion.")
		return
	case service.ConsoleClosed:
		fmt.Fprintln(w, "Consola cerrada.")
		return
	case service.ConsoleLoading:
		fmt.Fprintln(w, "Cargando mensajes...")
		return
	case service.ConsoleError:
		fmt.Fprintf(w, "No se pudieron cargar los mensajes: %v\n", view.Err)
		if len(view.Messages) == 0 {
			return
		}
	case service.ConsoleEmpty:
		fmt.Fprintf(w, "%s: todavia no hay mensajes.\n", view.Identity.Email)
		return
	}

	fmt.Fprintf(w, "%s: %d mensajes\n", view.Identity.Email, len(view.Messages))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "From", "Message", "Received", "Status"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for i, m := range view.Messages {
		status := ""
		switch {
		case view.Pending[m.ID]:
			status = "deleting"
		case view.RowErrors[m.ID] != nil:
			status = "delete failed"
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			m.SenderName,
			m.Content,
			m.CreatedAt.Local().Format("2006-01-02 15:04"),
			status,
		})
	}
	table.Render()
}
