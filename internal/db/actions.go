package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-insight/internal/app"
	"github.com/dtnitsch/news-insight/internal/common"
	"github.com/dtnitsch/news-insight/models"
	dbpkg "github.com/dtnitsch/news-insight/pkg/db"
	"github.com/dtnitsch/news-insight/pkg/settings"
)

func openSettings(c *cli.Context) (*dbpkg.DB, *settings.Service, error) {
	cfg, err := app.LoadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	database, err := dbpkg.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, settings.NewService(database, nil, app.Logger(c)), nil
}

// SettingsGetAction prints every feature flag.
func SettingsGetAction(c *cli.Context) error {
	database, svc, err := openSettings(c)
	if err != nil {
		return err
	}
	defer database.Close()

	s, err := svc.Snapshot(c.Context)
	if err != nil {
		return err
	}
	if format := c.String("format"); format != "" && format != "table" {
		return common.Write(os.Stdout, format, s, nil)
	}
	printSettings(s)
	return nil
}

// SettingsSetAction sets one flag: settings set <flag> <true|false>.
func SettingsSetAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: settings set <flag> <true|false>")
	}
	enabled, err := strconv.ParseBool(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", c.Args().Get(1), err)
	}

	database, svc, err := openSettings(c)
	if err != nil {
		return err
	}
	defer database.Close()

	s, err := svc.Set(c.Context, c.Args().First(), enabled)
	if err != nil {
		return fmt.Errorf("%w (known flags: %s)", err, strings.Join(models.AllFlags(), ", "))
	}
	printSettings(s)
	return nil
}

// SettingsResetAction restores the defaults.
func SettingsResetAction(c *cli.Context) error {
	database, svc, err := openSettings(c)
	if err != nil {
		return err
	}
	defer database.Close()

	s, err := svc.Reset(c.Context)
	if err != nil {
		return err
	}
	printSettings(s)
	return nil
}

func printSettings(s models.Settings) {
	fmt.Printf("%-26s %s\n", "Flag", "Enabled")
	fmt.Println(strings.Repeat("-", 36))
	for _, f := range models.AllFlags() {
		fmt.Printf("%-26s %t\n", f, s.Enabled(f))
	}
}

// CacheAction lists cached calendar and image results. With --clear they
// are removed.
func CacheAction(c *cli.Context) error {
	cfg, err := app.LoadConfig(c)
	if err != nil {
		return err
	}
	database, err := dbpkg.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if c.Bool("clear") {
		n, err := database.Clear(c.Context, dbpkg.NamespaceLocal)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d cached result(s)\n", n)
		return nil
	}

	keys, err := database.Keys(c.Context, dbpkg.NamespaceLocal, c.String("prefix"))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No cached results")
		return nil
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	fmt.Printf("\nTotal: %d cached result(s)\n", len(keys))
	return nil
}

// FetchAction shows the last recorded fetch of a URL.
func FetchAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no URL provided")
	}
	u, err := common.ValidateURL(c.Args().First())
	if err != nil {
		return err
	}
	cfg, err := app.LoadConfig(c)
	if err != nil {
		return err
	}
	database, err := dbpkg.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	rec, err := database.LastFetch(c.Context, u)
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Printf("%s has never been fetched\n", u)
		return nil
	}
	return common.Write(os.Stdout, c.String("format"), rec, nil)
}
