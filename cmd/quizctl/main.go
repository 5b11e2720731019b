package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli"

	"github.com/yourusername/livequiz-api/internal/config"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/importer"
	airtableRepo "github.com/yourusername/livequiz-api/internal/repository/airtable"
	pgRepo "github.com/yourusername/livequiz-api/internal/repository/postgres"
	"github.com/yourusername/livequiz-api/pkg/airtable"
	"github.com/yourusername/livequiz-api/pkg/database"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Не удалось загрузить .env")
	}

	app := cli.NewApp()
	app.Name = "quizctl"
	app.Usage = "Admin tool for the live quiz API: database migrations and question import"

	var configPath, dsn, source string

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "c, config",
			Usage:       "path to config.yaml",
			Value:       "config/config.yaml",
			EnvVar:      "CONFIG_PATH",
			Destination: &configPath,
		},
	}

	migrateFlags := []cli.Flag{
		cli.StringFlag{
			Name:        "dsn",
			Usage:       "PostgreSQL connection string (defaults to database.* from config)",
			EnvVar:      "DATABASE_URL",
			Destination: &dsn,
		},
		cli.StringFlag{
			Name:        "source",
			Usage:       "migrations source URL",
			Value:       database.DefaultMigrationsURL,
			Destination: &source,
		},
	}

	withMigrator := func(fn func(m *migrateV4.Migrate) error) func(c *cli.Context) error {
		return func(c *cli.Context) error {
			m, closeDB, err := openMigrator(configPath, dsn, source)
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			defer closeDB()
			if err := fn(m); err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			return nil
		}
	}

	app.Commands = []cli.Command{
		{
			Name:  "migrate",
			Usage: "Manage PostgreSQL schema migrations",
			Subcommands: []cli.Command{
				{
					Name:  "up",
					Usage: "Apply all pending migrations",
					Flags: migrateFlags,
					Action: withMigrator(func(m *migrateV4.Migrate) error {
						if err := m.Up(); err != nil && !errors.Is(err, migrateV4.ErrNoChange) {
							return fmt.Errorf("migrate up: %w", err)
						}
						log.Println("Миграции применены")
						return nil
					}),
				},
				{
					Name:  "down",
					Usage: "Roll back one migration",
					Flags: migrateFlags,
					Action: withMigrator(func(m *migrateV4.Migrate) error {
						if err := m.Steps(-1); err != nil {
							return fmt.Errorf("migrate down: %w", err)
						}
						log.Println("Последняя миграция откачена")
						return nil
					}),
				},
				{
					Name:      "force",
					Usage:     "Set the schema version and clear the dirty flag",
					ArgsUsage: "VERSION",
					Flags:     migrateFlags,
					Action: func(c *cli.Context) error {
						version, err := strconv.Atoi(c.Args().First())
						if err != nil {
							return cli.NewExitError("VERSION must be an integer", 1)
						}
						return withMigrator(func(m *migrateV4.Migrate) error {
							if err := m.Force(version); err != nil {
								return fmt.Errorf("migrate force %d: %w", version, err)
							}
							log.Printf("Версия схемы установлена в %d", version)
							return nil
						})(c)
					},
				},
				{
					Name:  "version",
					Usage: "Print the current schema version",
					Flags: migrateFlags,
					Action: withMigrator(func(m *migrateV4.Migrate) error {
						version, dirty, err := m.Version()
						if errors.Is(err, migrateV4.ErrNilVersion) {
							fmt.Println("no migrations applied")
							return nil
						}
						if err != nil {
							return err
						}
						fmt.Printf("version %d (dirty: %t)\n", version, dirty)
						return nil
					}),
				},
			},
		},
		{
			Name:      "import-questions",
			Aliases:   []string{"import"},
			Usage:     "Import questions from an .xlsx sheet into the configured record store",
			ArgsUsage: "FILE.xlsx",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "sheet", Usage: "sheet name (defaults to the first sheet)"},
			},
			Action: func(c *cli.Context) error {
				path := c.Args().First()
				if path == "" {
					return cli.NewExitError("FILE.xlsx is required", 1)
				}
				if err := importQuestions(configPath, path, c.String("sheet")); err != nil {
					return cli.NewExitError(err.Error(), 1)
				}
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openMigrator подключается к PostgreSQL через lib/pq и создает экземпляр migrate
func openMigrator(configPath, dsn, source string) (*migrateV4.Migrate, func(), error) {
	if dsn == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		dsn = cfg.Database.PostgresConnectionString()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := migratePostgres.WithInstance(db, &migratePostgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate driver: %w", err)
	}
	m, err := migrateV4.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, func() { m.Close() }, nil
}

func importQuestions(configPath, path, sheet string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	questions, err := importer.ParseQuestions(file, sheet)
	if err != nil {
		return err
	}

	repo, closeStore, err := questionRepo(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	created, err := importer.Import(context.Background(), repo, questions)
	log.WithFields(log.Fields{
		"file":    path,
		"parsed":  len(questions),
		"created": created,
		"store":   cfg.Store.Driver,
	}).Info("Импорт вопросов завершен")
	return err
}

func questionRepo(cfg *config.Config) (repository.QuestionRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return pgRepo.NewQuestionRepo(db), closeDB, nil
	default:
		client, err := airtable.NewClient(airtable.Config{
			APIKey:  cfg.Airtable.APIKey,
			BaseID:  cfg.Airtable.BaseID,
			BaseURL: cfg.Airtable.BaseURL,
			Timeout: cfg.Airtable.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return airtableRepo.NewQuestionRepo(client, cfg.Airtable.QuizTable), func() {}, nil
	}
}
