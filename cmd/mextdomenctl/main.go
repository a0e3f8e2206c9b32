// mextdomenctl is a command-line administration tool for the directory: it
// opens the encrypted store directly (no running server required) and runs
// a single user/group/ou/domain/gpo operation per invocation.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/models"
	"github.com/nextdomen/mextdomen/internal/raddb"
)

var (
	dataDir string
	keyHex  string

	dir *directory.Service
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mextdomenctl",
		Short: "mextdomenctl — directory administration CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return openDirectory()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if dir != nil {
				dir.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "directory data directory")
	root.PersistentFlags().StringVar(&keyHex, "key", strings.Repeat("0", 64), "64-character hex-encoded master key")

	root.AddCommand(newUserCmd(), newGroupCmd(), newOUCmd(), newDomainCmd(), newGPOCmd())
	return root
}

func openDirectory() error {
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil || len(keyBytes) != 32 {
		return fmt.Errorf("--key must be 64 hex characters (32 bytes)")
	}
	var key raddb.MasterKey
	copy(key[:], keyBytes)

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	d, err := directory.Open(dataDir, key, zap.NewNop())
	if err != nil {
		return fmt.Errorf("failed to open directory store: %w", err)
	}
	dir = d
	return nil
}

// ─── user ─────────────────────────────────────────────────────────────────

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}
	cmd.AddCommand(newUserCreateCmd(), newUserListCmd(), newUserShowCmd(), newUserDeleteCmd(), newUserRenameCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var email, displayName, givenName, surname string

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a new user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			hash, err := models.NewBcryptPassword("ChangeMe123!")
			if err != nil {
				return fmt.Errorf("failed to hash default password: %w", err)
			}

			user := &models.User{
				ID:                 uuid.New(),
				SID:                models.NewNTAuthoritySID(1000),
				Username:           username,
				UserPrincipalName:  username + "@corp.acme.com",
				PasswordHash:       hash,
				Enabled:            true,
				Meta:               map[string]string{},
			}
			if email != "" {
				user.Email = &email
			}
			if displayName != "" {
				user.DisplayName = &displayName
			}
			if givenName != "" {
				user.GivenName = &givenName
			}
			if surname != "" {
				user.Surname = &surname
			}

			if err := dir.CreateUser(user); err != nil {
				return err
			}
			fmt.Printf("user %s created (default password: ChangeMe123!)\n", username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&displayName, "display-name", "d", "", "display name")
	cmd.Flags().StringVarP(&givenName, "given-name", "g", "", "given name")
	cmd.Flags().StringVarP(&surname, "surname", "s", "", "surname")
	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := dir.GetAllUsers()
			if err != nil {
				return err
			}
			for _, u := range users {
				name := "No Name"
				if u.DisplayName != nil {
					name = *u.DisplayName
				}
				fmt.Printf("  - %s (%s)\n", u.Username, name)
			}
			fmt.Printf("total: %d users\n", len(users))
			return nil
		},
	}
}

func newUserShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <username>",
		Short: "Show a single user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := dir.FindUserByUsername(args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user not found: %s", args[0])
			}
			fmt.Printf("%+v\n", *user)
			return nil
		},
	}
}

func newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := dir.FindUserByUsername(args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user not found: %s", args[0])
			}
			if err := dir.DeleteUser(user.ID); err != nil {
				return err
			}
			fmt.Printf("user %s deleted\n", args[0])
			return nil
		},
	}
}

func newUserRenameCmd() *cobra.Command {
	var newUsername, displayName string

	cmd := &cobra.Command{
		Use:   "rename <username>",
		Short: "Rename a user or change its display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := dir.FindUserByUsername(args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user not found: %s", args[0])
			}

			var newUsernamePtr, displayNamePtr *string
			if newUsername != "" {
				newUsernamePtr = &newUsername
			}
			if displayName != "" {
				displayNamePtr = &displayName
			}

			if err := dir.RenameUser(user.ID, newUsernamePtr, displayNamePtr); err != nil {
				return err
			}
			fmt.Printf("user %s renamed\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&newUsername, "new-username", "n", "", "new username")
	cmd.Flags().StringVarP(&displayName, "display-name", "d", "", "new display name")
	return cmd
}

// ─── group ────────────────────────────────────────────────────────────────

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "group", Short: "Manage groups"}
	cmd.AddCommand(newGroupCreateCmd(), newGroupAddMemberCmd(), newGroupRemoveMemberCmd(), newGroupListMembersCmd(), newGroupDeleteCmd())
	return cmd
}

func newGroupCreateCmd() *cobra.Command {
	var sam string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new security group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if sam == "" {
				sam = strings.ToUpper(name)
			}
			group := models.NewGroup(name, sam, uuid.Nil, models.GroupTypeSecurity, models.GroupScopeGlobal)
			if err := dir.CreateGroup(&group); err != nil {
				return err
			}
			fmt.Printf("group %s created\n", group.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&sam, "sam-account-name", "", "SAM account name (defaults to the group name, upper-cased)")
	return cmd
}

func newGroupAddMemberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-member <group> <user>",
		Short: "Add a user to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, user, err := resolveGroupAndUser(args[0], args[1])
			if err != nil {
				return err
			}
			if err := dir.AddMemberToGroup(group.ID, user.ID); err != nil {
				return err
			}
			fmt.Printf("%s added to %s\n", args[1], args[0])
			return nil
		},
	}
}

func newGroupRemoveMemberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-member <group> <user>",
		Short: "Remove a user from a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, user, err := resolveGroupAndUser(args[0], args[1])
			if err != nil {
				return err
			}
			if err := dir.RemoveMemberFromGroup(group.ID, user.ID); err != nil {
				return err
			}
			fmt.Printf("%s removed from %s\n", args[1], args[0])
			return nil
		},
	}
}

func newGroupListMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-members <group>",
		Short: "List a group's members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := dir.FindGroupBySAMAccountName(args[0])
			if err != nil {
				return err
			}
			if group == nil {
				return fmt.Errorf("group not found: %s", args[0])
			}
			for _, id := range group.Members {
				u, err := dir.GetUser(id)
				if err != nil || u == nil {
					continue
				}
				fmt.Printf("  - %s\n", u.Username)
			}
			fmt.Printf("total: %d members\n", len(group.Members))
			return nil
		},
	}
}

func newGroupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group>",
		Short: "Delete a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := dir.FindGroupBySAMAccountName(args[0])
			if err != nil {
				return err
			}
			if group == nil {
				return fmt.Errorf("group not found: %s", args[0])
			}
			if err := dir.DeleteGroup(group.ID); err != nil {
				return err
			}
			fmt.Printf("group %s deleted\n", args[0])
			return nil
		},
	}
}

func resolveGroupAndUser(groupSAM, username string) (*models.Group, *models.User, error) {
	group, err := dir.FindGroupBySAMAccountName(groupSAM)
	if err != nil {
		return nil, nil, err
	}
	if group == nil {
		return nil, nil, fmt.Errorf("group not found: %s", groupSAM)
	}
	user, err := dir.FindUserByUsername(username)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, fmt.Errorf("user not found: %s", username)
	}
	return group, user, nil
}

// ─── ou ───────────────────────────────────────────────────────────────────

func newOUCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "ou", Short: "Manage organizational units"}
	cmd.AddCommand(newOUCreateCmd(), newOUListCmd())
	return cmd
}

func newOUCreateCmd() *cobra.Command {
	var parentDN string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an organizational unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			var parentID *uuid.UUID
			base := "DC=example,DC=test"
			if parentDN != "" {
				parent, err := dir.FindOUByDN(parentDN)
				if err != nil {
					return err
				}
				if parent == nil {
					return fmt.Errorf("parent OU not found: %s", parentDN)
				}
				parentID = &parent.ID
				base = parentDN
			}

			dn := fmt.Sprintf("OU=%s,%s", name, base)
			ou := models.NewOU(name, dn, parentID)
			if err := dir.CreateOU(&ou); err != nil {
				return err
			}
			fmt.Printf("OU created: %s\n", ou.DN)
			return nil
		},
	}

	cmd.Flags().StringVarP(&parentDN, "parent", "p", "", "parent OU's distinguished name")
	return cmd
}

func newOUListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List organizational units",
		RunE: func(cmd *cobra.Command, args []string) error {
			ous, err := dir.GetAllOUs()
			if err != nil {
				return err
			}
			for _, ou := range ous {
				fmt.Printf("  - %s (DN: %s)\n", ou.Name, ou.DN)
			}
			fmt.Printf("total: %d OUs\n", len(ous))
			return nil
		},
	}
}

// ─── domain ───────────────────────────────────────────────────────────────

func newDomainCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "domain", Short: "Manage domains"}
	cmd.AddCommand(newDomainCreateCmd(), newDomainListCmd())
	return cmd
}

func newDomainCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> <dns-name>",
		Short: "Create a domain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := models.NewDomainWithDefaults(args[0], args[1], models.NewNTAuthoritySID(21))
			if err := dir.CreateDomain(&domain); err != nil {
				return err
			}
			fmt.Printf("domain %s created\n", domain.DNSName)
			return nil
		},
	}
}

func newDomainListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			domains, err := dir.GetAllDomains()
			if err != nil {
				return err
			}
			for _, d := range domains {
				fmt.Printf("  - %s (%s)\n", d.Name, d.DNSName)
			}
			fmt.Printf("total: %d domains\n", len(domains))
			return nil
		},
	}
}

// ─── gpo ──────────────────────────────────────────────────────────────────

func newGPOCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "gpo", Short: "Manage group policy objects"}
	cmd.AddCommand(newGPOCreateCmd(), newGPOListCmd(), newGPOLinkCmd(), newGPOUnlinkCmd(), newGPOSetInheritanceCmd(), newGPOSetEnforcedCmd())
	return cmd
}

func newGPOCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group policy object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gpo := models.NewGroupPolicy(args[0])
			if err := dir.CreateGPO(&gpo); err != nil {
				return err
			}
			fmt.Printf("GPO created: %s (%s)\n", gpo.Name, gpo.ID)
			return nil
		},
	}
}

func newGPOListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List group policy objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			gpos, err := dir.GetAllGPOs()
			if err != nil {
				return err
			}
			for _, g := range gpos {
				fmt.Printf("  - %s (%s)\n", g.Name, g.ID)
			}
			fmt.Printf("total: %d GPOs\n", len(gpos))
			return nil
		},
	}
}

func newGPOLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <gpo-id> <ou-dn>",
		Short: "Link a GPO to an organizational unit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gpoID, ou, err := resolveGPOAndOU(args[0], args[1])
			if err != nil {
				return err
			}
			if err := dir.LinkGPOToOU(gpoID, ou.ID); err != nil {
				return err
			}
			fmt.Printf("GPO %s linked to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newGPOUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <gpo-id> <ou-dn>",
		Short: "Unlink a GPO from an organizational unit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gpoID, ou, err := resolveGPOAndOU(args[0], args[1])
			if err != nil {
				return err
			}
			if err := dir.UnlinkGPOFromOU(gpoID, ou.ID); err != nil {
				return err
			}
			fmt.Printf("GPO %s unlinked from %s\n", args[0], args[1])
			return nil
		},
	}
}

func newGPOSetInheritanceCmd() *cobra.Command {
	var block bool

	cmd := &cobra.Command{
		Use:   "set-inheritance <ou-dn>",
		Short: "Set whether an OU blocks GPO inheritance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ou, err := dir.FindOUByDN(args[0])
			if err != nil {
				return err
			}
			if ou == nil {
				return fmt.Errorf("OU not found: %s", args[0])
			}
			if err := dir.SetBlockInheritance(ou.ID, block); err != nil {
				return err
			}
			fmt.Printf("%s inheritance blocking set to %t\n", args[0], block)
			return nil
		},
	}

	cmd.Flags().BoolVar(&block, "block", true, "block inherited GPOs from parent OUs")
	return cmd
}

func newGPOSetEnforcedCmd() *cobra.Command {
	var enforced bool

	cmd := &cobra.Command{
		Use:   "set-enforced <ou-dn>",
		Short: "Set an OU's enforced flag, which marks its links as enforced in gPLink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ou, err := dir.FindOUByDN(args[0])
			if err != nil {
				return err
			}
			if ou == nil {
				return fmt.Errorf("OU not found: %s", args[0])
			}
			if err := dir.SetGPOEnforced(ou.ID, enforced); err != nil {
				return err
			}
			fmt.Printf("%s GPO enforcement set to %t\n", args[0], enforced)
			return nil
		},
	}

	cmd.Flags().BoolVar(&enforced, "enforced", true, "mark the OU's GPO links as enforced in its gPLink")
	return cmd
}

func resolveGPOAndOU(gpoIDStr, ouDN string) (uuid.UUID, *models.OrganizationalUnit, error) {
	gpoID, err := uuid.Parse(gpoIDStr)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("invalid GPO id: %w", err)
	}
	ou, err := dir.FindOUByDN(ouDN)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if ou == nil {
		return uuid.Nil, nil, fmt.Errorf("OU not found: %s", ouDN)
	}
	return gpoID, ou, nil
}
