// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/ifa-app/ifa/internal/account"
	"github.com/ifa-app/ifa/internal/account/postgres"
)

func newBob() *account.Account {
	return &account.Account{
		Username:     "bob_johnson",
		FirstName:    "Bob",
		LastName:     "Johnson",
		Age:          42,
		PasswordHash: "$2a$04$abcdefghijklmnopqrstuu5zc5GYPbH6JbYh8QYZpVkS2c2lG0bCe",
	}
}

var _ = Describe("Store", func() {
	var (
		ctx context.Context
		s   *postgres.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)
		s = postgres.NewStore(pool)
	})

	Describe("Save", func() {
		It("inserts a new account and assigns identity", func() {
			bob := newBob()
			Expect(s.Save(ctx, bob)).To(Succeed())
			Expect(bob.IsNew()).To(BeFalse())
			Expect(bob.CreatedAt).NotTo(BeZero())

			found, err := s.FindByUsernameCaseInsensitive(ctx, "BOB_JOHNSON")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].ID).To(Equal(bob.ID))
			Expect(found[0].Username).To(Equal("bob_johnson"))
			Expect(found[0].PasswordHash).To(Equal(bob.PasswordHash))
			Expect(found[0].CreatedAt).To(BeTemporally("==", bob.CreatedAt))
			Expect(found[0].UpdatedAt).To(BeTemporally("==", bob.UpdatedAt))
		})

		It("rejects a username differing only in case", func() {
			Expect(s.Save(ctx, newBob())).To(Succeed())

			dup := newBob()
			dup.Username = "Bob_Johnson"
			err := s.Save(ctx, dup)
			Expect(errors.Is(err, account.ErrDuplicateUsername)).To(BeTrue())
		})

		It("detects stale updates", func() {
			bob := newBob()
			Expect(s.Save(ctx, bob)).To(Succeed())

			first, second := bob.Clone(), bob.Clone()
			first.Age = 43
			Expect(s.Save(ctx, first)).To(Succeed())
			Expect(first.UpdatedAt).To(BeTemporally(">", bob.UpdatedAt))

			second.Age = 44
			err := s.Save(ctx, second)
			Expect(errors.Is(err, account.ErrConflict)).To(BeTrue())

			found, err := s.FindByUsernameCaseInsensitive(ctx, "bob_johnson")
			Expect(err).NotTo(HaveOccurred())
			Expect(found[0].Age).To(Equal(43))
		})

		It("enforces the schema age range", func() {
			bob := newBob()
			bob.Age = 123
			err := s.Save(ctx, bob)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, account.ErrDuplicateUsername)).To(BeFalse())
		})
	})

	Describe("Delete", func() {
		It("removes the account once", func() {
			bob := newBob()
			Expect(s.Save(ctx, bob)).To(Succeed())
			Expect(s.Delete(ctx, bob)).To(Succeed())

			err := s.Delete(ctx, bob)
			Expect(errors.Is(err, account.ErrNotFound)).To(BeTrue())

			found, err := s.FindByUsernameCaseInsensitive(ctx, "bob_johnson")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeEmpty())
		})
	})
})

var _ = Describe("Service on PostgreSQL", func() {
	var (
		ctx context.Context
		svc *account.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)

		passwords, err := account.NewBcryptManager(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc, err = account.NewService(postgres.NewStore(pool), passwords, account.NewRuleValidator(), logger)
		Expect(err).NotTo(HaveOccurred())
	})

	It("runs the account lifecycle", func() {
		bob, err := svc.Register(ctx, account.Registration{
			Username:  "bob_johnson",
			Password:  "correct-horse-battery",
			FirstName: "Bob",
			LastName:  "Johnson",
			Age:       42,
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Authenticate(ctx, "BOB_JOHNSON", "correct-horse-battery")
		Expect(err).NotTo(HaveOccurred())

		updated, err := svc.UpdateProfile(ctx, bob, account.ProfileUpdate{FirstName: "Davíð", LastName: "ديفيد", Age: 43})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.FirstName).To(Equal("Davíð"))
		Expect(svc.Age(ctx, "bob_johnson")).To(Equal(43))

		_, err = svc.ChangePassword(ctx, updated, "brand-new-password", "correct-horse-battery")
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.Authenticate(ctx, "bob_johnson", "correct-horse-battery")
		Expect(errors.Is(err, account.ErrInvalidCredentials)).To(BeTrue())

		deleted, err := svc.Delete(ctx, "bob_johnson")
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(BeTrue())
		Expect(svc.GetByUsername(ctx, "bob_johnson")).To(BeNil())
	})

	It("lets exactly one concurrent registration win", func() {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for range 6 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := svc.Register(ctx, account.Registration{
					Username:  "carol_jones",
					Password:  "correct-horse-battery",
					FirstName: "Carol",
					LastName:  "Jones",
					Age:       30,
				})
				if err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
					return
				}
				Expect(errors.Is(err, account.ErrDuplicateUsername)).To(BeTrue())
			}()
		}
		wg.Wait()
		Expect(winners).To(Equal(1))
	})
})
