package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tripline/internal/app"
	"tripline/internal/catalog"
	"tripline/internal/config"
	"tripline/internal/db"
	"tripline/internal/domain"
	"tripline/internal/itinerary"
	"tripline/internal/repo"
	"tripline/internal/scoring"
	"tripline/internal/server"
	"tripline/internal/translate"
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "Tripline CLI",
	Long: `Tripline walks a traveller from a loose wish to a saved trip plan.
- Preferences: onboarding answers (budget range, activities, dietary needs) kept per user.
- Wishes: the free-text request; an intent parser reads activities, budget and dates from it.
- Swipe: destinations and stays are shown one at a time; like or pass each, then pick from the liked ones.
- Dining and experiences: pick from ranked lists, or finish early and skip ahead.
- Itinerary: a three-day schedule and a budget estimate; signed-in users get the plan saved.
- Event log: every stored change, view with 'tl log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

// initConfig loads the workspace .env before binding TRIPLINE_* variables.
func initConfig() {
	workspace, _ := rootCmd.PersistentFlags().GetString("workspace")
	if err := godotenv.Load(filepath.Join(workspace, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] ignoring .env: %v", err)
	}
	viper.SetEnvPrefix("TRIPLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (defaults to <workspace>/tripline.yml)")
	rootCmd.PersistentFlags().String("db", "", "database file (defaults to <workspace>/.tripline/tripline.db)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user-id", "", "signed-in user (set by 'tl user login')")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user-id"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(prefsCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(intentCmd())
	rootCmd.AddCommand(translateCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(plansCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var sessionTTL time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt-secret")
			if secret == "" {
				return fmt.Errorf("TRIPLINE_JWT_SECRET is required for bearer auth")
			}
			return withServices(cmd.Context(), func(ctx context.Context, s *app.Services) error {
				handler, err := server.New(server.Config{
					Engine:             s.Engine,
					Repo:               s.Repo,
					BasePath:           basePath,
					Auth:               server.AuthConfig{JWTSecret: secret},
					AllowedOrigins:     s.Config.Server.AllowedOrigins,
					RateLimitPerSecond: s.Config.Server.RateLimitPerSecond,
					Burst:              s.Config.Server.Burst,
					SessionTTL:         sessionTTL,
					Translator:         s.Translator,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					<-ctx.Done()
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(sctx)
				}()
				fmt.Printf("Serving Tripline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", 2*time.Hour, "drop planning sessions idle this long")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage local accounts"}
	cmd.AddCommand(userCreateCmd())
	cmd.AddCommand(userLoginCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var in repo.NewUser
	var login bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				u, err := r.CreateUser(ctx, in)
				if err != nil {
					return err
				}
				if login {
					if err := rememberUser(u); err != nil {
						return err
					}
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "email")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.City, "city", "", "home city")
	cmd.Flags().StringVar(&in.Country, "country", "", "home country")
	cmd.Flags().BoolVar(&login, "login", false, "sign in as the new user")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func userLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in; later commands act as this user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				u, err := r.Authenticate(ctx, email, password)
				if err != nil {
					return err
				}
				if err := rememberUser(u); err != nil {
					return err
				}
				fmt.Printf("signed in as %s\n", u.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// rememberUser writes TRIPLINE_USER_ID to the workspace .env.
func rememberUser(u domain.User) error {
	return setEnvValue(filepath.Join(viper.GetString("workspace"), ".env"), "TRIPLINE_USER_ID", u.ID)
}

func requireUserID() (string, error) {
	id := viper.GetString("user-id")
	if id == "" {
		return "", fmt.Errorf("not signed in; run 'tl user login' or pass --user-id")
	}
	return id, nil
}

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "prefs", Short: "Stored travel preferences"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show stored preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := requireUserID()
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetPreferences(ctx, userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	})
	cmd.AddCommand(prefsSetCmd())
	return cmd
}

func prefsSetCmd() *cobra.Command {
	var budgetRange string
	var budget float64
	var activities, dietary, interests, styles []string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Amend stored preferences; unset flags keep their value",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := requireUserID()
			if err != nil {
				return err
			}
			tags, err := parseActivities(activities)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetPreferences(ctx, userID)
				if err != nil {
					return err
				}
				flags := cmd.Flags()
				if flags.Changed("budget-range") {
					p.BudgetRange = budgetRange
				}
				if flags.Changed("budget") {
					p.Budget = &budget
				}
				if flags.Changed("activity") {
					p.Activities = tags
				}
				if flags.Changed("dietary") {
					p.DietaryRestrictions = dietary
				}
				if flags.Changed("interest") {
					p.Interests = interests
				}
				if flags.Changed("style") {
					p.VacationStyle = styles
				}
				if err := r.SavePreferences(ctx, userID, p); err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&budgetRange, "budget-range", "", `budget range, e.g. "$500-$1500"`)
	cmd.Flags().Float64Var(&budget, "budget", 0, "explicit budget ceiling")
	cmd.Flags().StringSliceVar(&activities, "activity", nil, "preferred activities ("+activityList()+")")
	cmd.Flags().StringSliceVar(&dietary, "dietary", nil, "dietary restrictions")
	cmd.Flags().StringSliceVar(&interests, "interest", nil, "interests")
	cmd.Flags().StringSliceVar(&styles, "style", nil, "vacation styles")
	return cmd
}

type filterFlags struct {
	kind, city, typ               string
	minPrice, maxPrice, minRating float64
	activities                    []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "kind", "", "destination|property|restaurant|experience")
	cmd.Flags().StringVar(&f.city, "city", "", "city or country")
	cmd.Flags().StringVar(&f.typ, "type", "", "room type, cuisine, category or country")
	cmd.Flags().Float64Var(&f.minPrice, "min-price", 0, "minimum price")
	cmd.Flags().Float64Var(&f.maxPrice, "max-price", 0, "maximum price")
	cmd.Flags().Float64Var(&f.minRating, "min-rating", 0, "minimum rating")
	cmd.Flags().StringSliceVar(&f.activities, "activity", nil, "any of these activities ("+activityList()+")")
}

func (f *filterFlags) filters(cmd *cobra.Command) (catalog.Filters, error) {
	tags, err := parseActivities(f.activities)
	if err != nil {
		return catalog.Filters{}, err
	}
	out := catalog.Filters{Kind: domain.Kind(f.kind), City: f.city, Type: f.typ, Activities: tags}
	if cmd.Flags().Changed("min-price") {
		out.MinPrice = &f.minPrice
	}
	if cmd.Flags().Changed("max-price") {
		out.MaxPrice = &f.maxPrice
	}
	if cmd.Flags().Changed("min-rating") {
		out.MinRating = &f.minRating
	}
	return out, nil
}

func searchCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Filter the candidate catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filters(cmd)
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, s *app.Services) error {
				items := s.Engine.Search(f)
				if viper.GetBool("json") {
					return printJSON(items)
				}
				printCandidates(items, nil)
				return nil
			})
		},
	}
	ff.register(cmd)
	return cmd
}

func recommendCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank candidates against your stored preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filters(cmd)
			if err != nil {
				return err
			}
			return withServices(cmd.Context(), func(ctx context.Context, s *app.Services) error {
				var prefs domain.Preferences
				if userID := viper.GetString("user-id"); userID != "" {
					if prefs, err = s.Repo.GetPreferences(ctx, userID); err != nil {
						return err
					}
				}
				if len(prefs.Activities) == 0 {
					prefs.Activities = f.Activities
				}
				recs := s.Engine.Recommend(f, prefs)
				if viper.GetBool("json") {
					return printJSON(recs)
				}
				printRecommendations(recs)
				return nil
			})
		},
	}
	ff.register(cmd)
	return cmd
}

func intentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intent <query>",
		Short: "Show what the intent parser reads from a request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *app.Services) error {
				return printJSON(s.Engine.ParseIntent(ctx, strings.Join(args, " ")))
			})
		},
	}
}

func translateCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate text with the configured language model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *app.Services) error {
				res, err := s.Translator.Translate(ctx, strings.Join(args, " "), target)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("%s (%s -> %s)\n", res.TranslatedText, res.SourceLanguage, res.TargetLanguage)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "to", translate.DefaultTarget, "target language code")
	return cmd
}

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Plan a trip interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s *app.Services) error {
				p := &planner{
					wf:  s.Engine.NewWorkflow(),
					in:  bufio.NewScanner(os.Stdin),
					out: os.Stdout,
				}
				return p.run(ctx, viper.GetString("user-id"))
			})
		},
	}
}

func plansCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "plans", Short: "Saved trip plans"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved plans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := requireUserID()
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				plans, err := r.ListTripPlans(ctx, userID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(plans)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Destination", "Total", "Created"})
				for _, p := range plans {
					total := "-"
					if p.Plan.Budget != nil {
						total = fmt.Sprintf("$%.0f", p.Plan.Budget.Total)
					}
					tw.AppendRow(table.Row{p.ID, p.Name, p.Destination, total, p.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one saved plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := requireUserID()
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetTripPlan(ctx, userID, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				printPlan(os.Stdout, p.Plan)
				return nil
			})
		},
	})
	cmd.AddCommand(plansExportCmd())
	return cmd
}

func plansExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a saved plan as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := requireUserID()
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetTripPlan(ctx, userID, args[0])
				if err != nil {
					return err
				}
				if out == "" {
					out = p.ID + ".pdf"
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := itinerary.WritePDF(f, p.Plan, p.ID); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <id>.pdf)")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect tripline.yml",
		Long:  "Config holds the planner constants (pricing estimates, arrival and departure times, candidate counts), catalog limits, the language model provider, the intent cache and server limits.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"))
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
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default tripline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of every stored change: signups, logins, saved preferences and saved plans.",
	}
	cmd.AddCommand(logTailCmd())
	return cmd
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType string
	var mine bool
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor := ""
			if mine {
				id, err := requireUserID()
				if err != nil {
					return err
				}
				actor = id
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().BoolVar(&mine, "mine", false, "only the signed-in user's events")
	return cmd
}

// --- helpers ---

func withServices(ctx context.Context, fn func(context.Context, *app.Services) error) error {
	s, err := app.Open(ctx, app.Options{
		Workspace:     viper.GetString("workspace"),
		ConfigFile:    viper.GetString("config"),
		DBFile:        viper.GetString("db"),
		LLMAPIKey:     viper.GetString("llm-api-key"),
		RedisPassword: viper.GetString("redis-password"),
	})
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	return withServices(ctx, func(ctx context.Context, s *app.Services) error {
		return fn(ctx, s.Repo)
	})
}

func parseActivities(raw []string) ([]domain.ActivityTag, error) {
	var out []domain.ActivityTag
	for _, r := range raw {
		tag := domain.ActivityTag(strings.ToLower(strings.TrimSpace(r)))
		if tag == "" {
			continue
		}
		if !tag.Valid() {
			return nil, fmt.Errorf("invalid activity %q (want %s)", r, activityList())
		}
		out = append(out, tag)
	}
	return out, nil
}

func activityList() string {
	names := make([]string, len(domain.KnownActivities))
	for i, a := range domain.KnownActivities {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

func printCandidates(items []domain.Candidate, scores []float64) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	header := table.Row{"ID", "Kind", "Name", "Where", "Type", "Price", "Rating"}
	if scores != nil {
		header = append(header, "Score")
	}
	tw.AppendHeader(header)
	for i, c := range items {
		l := c.Info()
		where := strings.Trim(l.City+", "+l.Country, ", ")
		if where == "" {
			where = "anywhere"
		}
		row := table.Row{l.ID, c.Kind(), l.Name, where, catalog.TypeOf(c), fmt.Sprintf("$%.0f", l.Price), l.Rating}
		if scores != nil {
			row = append(row, fmt.Sprintf("%.1f", scores[i]))
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func printRecommendations(recs []scoring.Recommendation) {
	items := make([]domain.Candidate, len(recs))
	scores := make([]float64, len(recs))
	for i, r := range recs {
		items[i] = r.Candidate
		scores[i] = r.Score
	}
	printCandidates(items, scores)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
