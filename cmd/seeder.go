package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/account"
	accountPostgres "github.com/transit241/port-logistics/internal/account/postgres"
	"github.com/transit241/port-logistics/internal/auth"
	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
	"github.com/transit241/port-logistics/internal/shipment"
)

const demoBillOfLading = "BL123456GAB"

var (
	seedDemo     bool
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with roles, permissions and demo accounts",
	Long:  `Create the built-in roles and permissions. With --demo, also create one account per role and a sample shipment.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := setup()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		deps, err := initializeDependencies(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer deps.Close()

		roleIDs, err := accountPostgres.NewAccountRepository(deps.DB).EnsureDefaults(ctx)
		if err != nil {
			log.Fatalf("failed to seed roles: %v", err)
		}
		fmt.Printf("Ensured %d roles and %d permissions\n", len(roleIDs), len(account.AllPermissions))

		if !seedDemo {
			return
		}

		hash, err := auth.HashPassword(seedPassword, cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		demo := []struct {
			Email     string
			FirstName string
			Role      string
		}{
			{"admin@transit241.com", "Admin", account.RoleAdmin},
			{"agent@transit241.com", "Agent", account.RolePortAgent},
			{"douane@transit241.com", "Officer", account.RoleCustomsOfficer},
			{"client@transit241.com", "Client", account.RoleClient},
			{"transport@transit241.com", "Carrier", account.RoleCarrier},
		}

		ids := make(map[string]string, len(demo))
		for _, d := range demo {
			roleID := roleIDs[d.Role]
			acc := accountDatamodel.Account{
				ID:           uuid.NewString(),
				Email:        d.Email,
				FirstName:    d.FirstName,
				LastName:     "Demo",
				RoleID:       &roleID,
				PasswordHash: hash,
				IsActive:     true,
				IsStaff:      d.Role != account.RoleClient,
			}
			if err := deps.DB.WithContext(ctx).
				Where(accountDatamodel.Account{Email: d.Email}).
				FirstOrCreate(&acc).Error; err != nil {
				log.Fatalf("failed to seed %s: %v", d.Email, err)
			}
			ids[d.Role] = acc.ID
			fmt.Printf("Seeded %s account: %s\n", d.Role, d.Email)
		}

		agentCtx := internal.ContextWithUser(ctx, &internal.User{
			ID:    ids[account.RolePortAgent],
			Email: "agent@transit241.com",
		})
		s, err := deps.Shipments.Create(agentCtx, shipment.CreateShipmentDTO{
			BillOfLading:    demoBillOfLading,
			Description:     "Pièces détachées automobiles",
			WeightKg:        1200.5,
			Dimensions:      "2x1.5x1.2",
			ClientID:        ids[account.RoleClient],
			StorageLocation: "Zone A - Allée 3",
		})
		var appErr *internal.AppError
		switch {
		case errors.As(err, &appErr) && appErr.Code == internal.ErrCodeDuplicateBillOfLading:
			fmt.Println("Demo shipment already exists:", demoBillOfLading)
		case err != nil:
			log.Fatalf("failed to seed demo shipment: %v", err)
		default:
			fmt.Println("Seeded demo shipment:", s.BillOfLading, s.ID)
		}
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "Also create demo accounts and a sample shipment")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "Password for the demo accounts")
}
