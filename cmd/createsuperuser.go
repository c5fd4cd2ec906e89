package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/transit241/port-logistics/internal/account"
	accountPostgres "github.com/transit241/port-logistics/internal/account/postgres"
	"github.com/transit241/port-logistics/internal/auth"
	authPostgres "github.com/transit241/port-logistics/internal/auth/postgres"
	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
	"github.com/transit241/port-logistics/internal/database"
)

const minPasswordLength = 8

var superuserEmail string

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an administrator account",
	RunE:  runCreateSuperuser,
}

func runCreateSuperuser(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := setup()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.OpenGorm(cfg.Database, false)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	in := bufio.NewReader(os.Stdin)
	email := strings.ToLower(strings.TrimSpace(superuserEmail))
	if email == "" {
		fmt.Print("Email: ")
		line, err := in.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.ToLower(strings.TrimSpace(line))
	}
	if email == "" {
		return errors.New("email is required")
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	repo := authPostgres.NewRepository(db)
	existing, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("an account with email %s already exists", email)
	}

	roleIDs, err := accountPostgres.NewAccountRepository(db).EnsureDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	adminRole := roleIDs[account.RoleAdmin]

	hash, err := auth.HashPassword(password, cfg.Security.BCryptCost)
	if err != nil {
		return err
	}
	acc := &accountDatamodel.Account{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    "Admin",
		RoleID:       &adminRole,
		PasswordHash: hash,
	}
	if err := repo.CreateSuperuser(ctx, acc); err != nil {
		return fmt.Errorf("create superuser: %w", err)
	}

	fmt.Println("Superuser created:", acc.Email, acc.ID)
	return nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password prompt needs an interactive terminal")
	}

	fmt.Print("Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Print("Password (again): ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return string(first), nil
}

func init() {
	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "Email of the new administrator")
}
