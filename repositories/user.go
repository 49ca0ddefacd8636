//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	userEmailPrefix = "user:email:"
	userIDPrefix    = "user:id:"
)

type IUserRepository interface {
	CreateUser(user User) (User, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
	ListUsers() ([]User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// User is the stored account, password hash included.
type User struct {
	ID           string
	Name         string
	Email        string
	Image        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

func (u User) ToDomain() domain.User {
	return domain.User{ID: u.ID, Name: u.Name, Image: u.Image, Email: u.Email}
}

// CreateUser assigns an ID and persists the user in BadgerDB.
// The record lives under its email; a secondary key maps the ID to that email.
func (u *UserRepository) CreateUser(user User) (User, error) {
	user.ID = uuid.New().String()
	user.Email = normalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if len(user.Roles) == 0 {
		user.Roles = []string{"user"}
	}

	err := u.db.Update(func(txn *badger.Txn) error {
		key := []byte(userEmailPrefix + user.Email)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(key, marshalUser(user)); err != nil {
			return err
		}
		return txn.Set([]byte(userIDPrefix+user.ID), []byte(user.Email))
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user from Badger; an unknown email is ErrUserNotFound.
func (u *UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getByEmail(txn, normalizeEmail(email))
		return err
	})
	return user, err
}

func (u *UserRepository) GetUserByID(id string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userIDPrefix + id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", errors.ErrUserNotFound, id)
		}
		if err != nil {
			return err
		}
		email, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err = getByEmail(txn, string(email))
		return err
	})
	return user, err
}

// ListUsers returns every account sorted by name.
func (u *UserRepository) ListUsers() ([]User, error) {
	var users []User
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userEmailPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				user, err := unmarshalUser(val)
				if err != nil {
					return err
				}
				users = append(users, user)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
	return users, nil
}

func getByEmail(txn *badger.Txn, email string) (User, error) {
	item, err := txn.Get([]byte(userEmailPrefix + email))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, fmt.Errorf("%w: %s", errors.ErrUserNotFound, email)
	}
	if err != nil {
		return User{}, err
	}
	var user User
	err = item.Value(func(val []byte) error {
		user, err = unmarshalUser(val)
		return err
	})
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
