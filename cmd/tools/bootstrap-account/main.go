// Command bootstrap-account seeds or updates an account in the datastore.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"cliptide/internal/models"
	"cliptide/internal/storage"
)

func main() {
	var (
		jsonPath string
		username string
		email    string
		fullName string
		password string
	)

	flag.StringVar(&jsonPath, "json", "data/store.json", "Path to the JSON datastore (store.json)")
	flag.StringVar(&username, "username", "", "Username for the account")
	flag.StringVar(&email, "email", "", "Email address for the account")
	flag.StringVar(&fullName, "name", "", "Full name for the account")
	flag.StringVar(&password, "password", "", "Password for the account")
	flag.Parse()

	if strings.TrimSpace(username) == "" {
		fatalf("--username is required")
	}
	if strings.TrimSpace(email) == "" {
		fatalf("--email is required")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}
	if strings.TrimSpace(fullName) == "" {
		fullName = username
	}

	store, err := storage.NewStorage(jsonPath)
	if err != nil {
		fatalf("open datastore: %v", err)
	}

	user, created, err := bootstrapAccount(store, username, email, fullName, password)
	if err != nil {
		fatalf("bootstrap account: %v", err)
	}

	state := "updated"
	if created {
		state = "created"
	}
	fmt.Printf("Account %s (%s) %s successfully.\n", user.Username, user.Email, state)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func bootstrapAccount(store *storage.Storage, username, email, fullName, password string) (models.User, bool, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)

	if existing, ok := store.FindUserByLogin(username); ok {
		return updateAccount(store, existing, email, fullName, password)
	}
	if existing, ok := store.FindUserByLogin(email); ok {
		return updateAccount(store, existing, email, fullName, password)
	}

	user, err := store.CreateUser(storage.CreateUserParams{
		Username: username,
		Email:    email,
		FullName: fullName,
		Password: password,
	})
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

func updateAccount(store *storage.Storage, existing models.User, email, fullName string, password string) (models.User, bool, error) {
	var update storage.UserUpdate
	if existing.Email != email {
		update.Email = &email
	}
	if existing.FullName != fullName {
		update.FullName = &fullName
	}

	if update.Email != nil || update.FullName != nil {
		if _, err := store.UpdateUser(existing.ID, update); err != nil {
			return models.User{}, false, err
		}
	}

	updated, err := store.SetUserPassword(existing.ID, password)
	if err != nil {
		return models.User{}, false, err
	}
	return updated, false, nil
}
