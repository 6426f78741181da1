package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"myspy/internal/api"
	"myspy/internal/config"
	"myspy/internal/db"
	"myspy/internal/engine"
	"myspy/internal/migrate"
	"myspy/internal/mission"
	"myspy/internal/server"
	"myspy/internal/tui"
	"myspy/internal/wizard"
)

var rootCmd = &cobra.Command{
	Use:   "myspy",
	Short: "My Spy CLI",
	Long: `My Spy runs mystery-shopper missions from the terminal.
- Spies run their pending mission: accept it, check in at the establishment,
  and answer the questionnaire one question at a time.
- Administrators create missions with the three-step wizard (ticket value,
  establishment, spy) and search the user directory.
- 'myspy serve' starts the development stub backend the client talks to.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MYSPY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides config)")
	rootCmd.PersistentFlags().String("user", "", "user id (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
}

func registerCommands() {
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
}

func missionCmd() *cobra.Command {
	m := &cobra.Command{
		Use:   "mission",
		Short: "Run, create, and inspect missions",
		Long:  "Missions flow waiting -> accepted -> in_progress -> completed; rejection exits from any non-terminal state.",
	}
	m.AddCommand(missionRunCmd())
	m.AddCommand(missionCreateCmd())
	m.AddCommand(missionShowCmd())
	return m
}

func missionRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run your pending mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(client *api.Client, cfg *config.Config) error {
				userID := currentUser(cfg)
				if userID == "" {
					return fmt.Errorf("no user configured; pass --user or run myspy login")
				}
				ctrl := mission.NewController(client, userID, nil)
				ctrl.SetProfileCompleted(profileCompleted(cfg))
				app := tui.NewSpyApp(client, ctrl, userID)
				_, err := tea.NewProgram(app).Run()
				return err
			})
		},
	}
	return cmd
}

func missionCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a mission (wizard)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(client *api.Client, cfg *config.Config) error {
				var dir wizard.Directory = client
				app := tui.NewWizardApp(dir)
				_, err := tea.NewProgram(app).Run()
				return err
			})
		},
	}
	return cmd
}

func missionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your pending mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(client *api.Client, cfg *config.Config) error {
				userID := currentUser(cfg)
				if userID == "" {
					return fmt.Errorf("no user configured; pass --user or run myspy login")
				}
				m, err := client.PendingMission(cmd.Context(), userID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(m)
				}
				if m == nil {
					fmt.Println("no pending mission")
					return nil
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Establishment", "Address", "Ticket", "Status"})
				tw.AppendRow(table.Row{m.ID, m.EstablishmentName, m.EstablishmentAddress,
					fmt.Sprintf("%.2f", m.TicketValue), m.Status.String()})
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func usersCmd() *cobra.Command {
	u := &cobra.Command{
		Use:   "users",
		Short: "User directory",
	}
	u.AddCommand(usersSearchCmd())
	return u
}

func usersSearchCmd() *cobra.Command {
	var opts api.UserSearch
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search users by role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(client *api.Client, cfg *config.Config) error {
				page, err := client.SearchUsers(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(page)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Profile", "Address"})
				for _, item := range page.Items {
					tw.AppendRow(table.Row{item.ID, item.Name, item.Email, item.ProfileType, item.Address})
				}
				tw.Render()
				fmt.Printf("page %d of %d (%d total)\n", page.Page, page.Pages, page.Total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Query, "query", "", "free-text term (name or email)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().StringVar(&opts.ProfileType, "profile-type", "", "individual, business, or admin")
	cmd.Flags().BoolVar(&opts.ProfileCompleted, "profile-completed", false, "only users with a completed profile")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password required")
			}
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = config.Default()
			}
			if u := viper.GetString("api-url"); u != "" {
				cfg.API.BaseURL = u
			}
			client := api.New(cfg.API.BaseURL)
			session, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login: %s", api.UserMessage(err))
			}
			cfg.Session.Token = session.Token
			cfg.User.ID = session.User.ID
			cfg.User.ProfileType = session.User.ProfileType
			cfg.User.ProfileCompleted = session.User.ProfileCompleted
			if err := config.Save(workspace, cfg); err != nil {
				return err
			}
			fmt.Printf("logged in as %s (%s)\n", session.User.Name, session.User.ProfileType)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the development stub backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			e := engine.New(conn)
			if seed {
				if err := e.SeedDemo(cmd.Context()); err != nil {
					return err
				}
			}
			secret := os.Getenv("MYSPY_JWT_SECRET")
			if secret == "" {
				// Stub backend for local development; a fixed fallback keeps
				// the out-of-the-box flow working.
				secret = "myspy-dev-secret"
			}
			handler, err := server.New(server.Config{
				Engine: e,
				Auth:   server.AuthConfig{JWTSecret: secret, TokenTTL: 24 * time.Hour},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving My Spy stub API on http://%s/api\n", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().BoolVar(&seed, "seed", true, "seed demo data into an empty database")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage myspy.yml",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default myspy.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if existing, err := config.LoadOptional(workspace); err == nil && existing != nil {
				return fmt.Errorf("%s already exists", config.Path(workspace))
			}
			cfg := config.Default()
			if err := config.Save(workspace, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", config.Path(workspace))
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate myspy.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

// --- helpers ---

func withClient(fn func(*api.Client, *config.Config) error) error {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	baseURL := cfg.API.BaseURL
	if u := viper.GetString("api-url"); u != "" {
		baseURL = u
	}
	client := api.New(baseURL)
	client.BearerToken = cfg.Session.Token
	return fn(client, cfg)
}

func currentUser(cfg *config.Config) string {
	if u := viper.GetString("user"); u != "" {
		return u
	}
	return cfg.User.ID
}

// profileCompleted gates the pending-mission lookup; a --user override is
// assumed complete since the config flag describes the configured user only.
func profileCompleted(cfg *config.Config) bool {
	if viper.GetString("user") != "" {
		return true
	}
	return cfg.User.ProfileCompleted
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
