package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/rosterhub/rosterhub/internal/adapter/idp"
	"github.com/rosterhub/rosterhub/internal/adapter/postgres"
	"github.com/rosterhub/rosterhub/internal/config"
	domdocstore "github.com/rosterhub/rosterhub/internal/domain/docstore"
	"github.com/rosterhub/rosterhub/internal/domain/identity"
)

// runAdmin dispatches admin subcommands. These operate directly on the
// store and the identity provider, bypassing the HTTP access guard, and
// exist to bootstrap tenants before any admin user can sign in.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "init-tenant":
		return runAdminInitTenant(args[1:])
	case "create-user":
		return runAdminCreateUser(args[1:])
	case "list-users":
		return runAdminListUsers(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: rosterhub admin <command> [options]

Commands:
  init-tenant      Create a tenant with its config and default credential
  create-user      Create an identity and enroll it in a tenant
  list-users       List a tenant's user records
  help             Show this help message

Examples:
  rosterhub admin init-tenant --id lwhs --name "Lakeside HS"
  rosterhub admin create-user --tenant lwhs --email owner@lakeside.edu --tier OWNER
  rosterhub admin list-users --tenant lwhs
`)
}

type adminDeps struct {
	store    *postgres.Store
	provider *idp.Client
	cleanup  func()
}

func loadAdminDeps() (*adminDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &adminDeps{
		store:    postgres.NewStore(pool),
		provider: idp.NewClient(cfg.Provider.URL, cfg.Provider.APIKey),
		cleanup:  pool.Close,
	}, nil
}

func runAdminInitTenant(args []string) error {
	fs := flag.NewFlagSet("init-tenant", flag.ContinueOnError)
	id := fs.String("id", "", "tenant id (required)")
	name := fs.String("name", "", "tenant display name (required)")
	password := fs.String("default-password", "", "shared default credential (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptPassword("Default credential: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	ctx := context.Background()
	if err := deps.store.Set(ctx, domdocstore.TenantRef(*id), map[string]any{
		"name":       *name,
		"userFields": []any{},
	}); err != nil {
		return fmt.Errorf("write tenant config: %w", err)
	}
	if err := deps.store.Set(ctx, domdocstore.DefaultCredentialRef(*id), map[string]any{
		"password": pass,
	}); err != nil {
		return fmt.Errorf("write default credential: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Tenant created: %s (%s)\n", *id, *name)
	return nil
}

func runAdminCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	tenantID := fs.String("tenant", "", "tenant id (required)")
	email := fs.String("email", "", "user email address (required)")
	tier := fs.String("tier", "MEMBER", "privilege tier: OWNER, ADMIN or MEMBER")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *tenantID == "" {
		return fmt.Errorf("--tenant is required")
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	switch identity.PrivilegeTier(*tier) {
	case identity.TierOwner, identity.TierAdmin, identity.TierMember:
	default:
		return fmt.Errorf("invalid tier %q", *tier)
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	ctx := context.Background()
	ident, err := deps.provider.Create(ctx, "", *email, pass)
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}

	if err := deps.store.Set(ctx, domdocstore.MembershipRef(ident.ID), map[string]any{
		"tenant": *tenantID,
	}); err != nil {
		return fmt.Errorf("write membership: %w", err)
	}
	if err := deps.store.Set(ctx, domdocstore.UserRecordRef(*tenantID, ident.ID), map[string]any{
		"accountType": *tier,
	}); err != nil {
		return fmt.Errorf("write user record: %w", err)
	}

	fmt.Fprintf(os.Stderr, "User created: %s (id=%s, tier=%s, tenant=%s)\n", ident.Email, ident.ID, *tier, *tenantID)
	return nil
}

func runAdminListUsers(args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	tenantID := fs.String("tenant", "", "tenant id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *tenantID == "" {
		return fmt.Errorf("--tenant is required")
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	ctx := context.Background()
	docs, err := deps.store.CollectionGet(ctx, domdocstore.UserDataCollection(*tenantID))
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tACCOUNT_TYPE")
	for _, doc := range docs {
		tier, _ := doc.Fields["accountType"].(string)
		_, _ = fmt.Fprintf(w, "%s\t%s\n", doc.Ref.ID, tier)
	}
	return w.Flush()
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after password input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
