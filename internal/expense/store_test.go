package expense

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

// describeStoreContract registers the CRUD contract every Store
// implementation must satisfy.
func describeStoreContract(name string, setup func() (Store, func())) bool {
	return Describe(name, func() {
		var (
			store    Store
			teardown func()
		)

		BeforeEach(func() {
			store, teardown = setup()
		})

		AfterEach(func() {
			teardown()
		})

		newExpense := func(id string) *Expense {
			return &Expense{
				ID:       id,
				Title:    "Cafe Luna Receipt",
				Amount:   42.50,
				Date:     time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
				Category: "Food",
				Vendor:   "Cafe Luna",
				Status:   StatusPending,
				Currency: "USD",
			}
		}

		It("round-trips an expense", func() {
			Expect(store.Save(newExpense("exp-1"))).To(Succeed())

			got, err := store.Get("exp-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Vendor).To(Equal("Cafe Luna"))
			Expect(got.Amount).To(Equal(42.50))
			Expect(got.Status).To(Equal(StatusPending))
		})

		It("returns ErrNotFound for unknown ids", func() {
			_, err := store.Get("missing")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})

		It("lists expenses in insertion order", func() {
			Expect(store.Save(newExpense("exp-1"))).To(Succeed())
			Expect(store.Save(newExpense("exp-2"))).To(Succeed())
			Expect(store.Save(newExpense("exp-3"))).To(Succeed())

			expenses, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(3))
			Expect(expenses[0].ID).To(Equal("exp-1"))
			Expect(expenses[1].ID).To(Equal("exp-2"))
			Expect(expenses[2].ID).To(Equal("exp-3"))
		})

		It("replaces on re-save without duplicating", func() {
			Expect(store.Save(newExpense("exp-1"))).To(Succeed())

			updated := newExpense("exp-1")
			updated.Amount = 99
			updated.IsEdited = true
			Expect(store.Save(updated)).To(Succeed())

			expenses, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(1))
			Expect(expenses[0].Amount).To(Equal(99.0))
			Expect(expenses[0].IsEdited).To(BeTrue())
		})

		It("deletes an expense", func() {
			Expect(store.Save(newExpense("exp-1"))).To(Succeed())
			Expect(store.Delete("exp-1")).To(Succeed())

			_, err := store.Get("exp-1")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())

			expenses, err := store.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(BeEmpty())
		})

		It("returns ErrNotFound when deleting an unknown id", func() {
			Expect(errors.Is(store.Delete("missing"), ErrNotFound)).To(BeTrue())
		})
	})
}

var _ = describeStoreContract("MemoryStore", func() (Store, func()) {
	return NewMemoryStore(), func() {}
})

var _ = describeStoreContract("BoltStore", func() (Store, func()) {
	dir, err := os.MkdirTemp("", "expense-tracker-test-*")
	Expect(err).NotTo(HaveOccurred())

	store, err := NewBoltStore(filepath.Join(dir, "test.db"))
	Expect(err).NotTo(HaveOccurred())

	return store, func() {
		store.Close()
		os.RemoveAll(dir)
	}
})

var _ = Describe("BoltStore order bucket", func() {
	var (
		dir   string
		store *BoltStore
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "expense-tracker-test-*")
		Expect(err).NotTo(HaveOccurred())

		store, err = NewBoltStore(filepath.Join(dir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		store.Close()
		os.RemoveAll(dir)
	})

	countOrderKeys := func() int {
		count := 0
		Expect(store.db.View(func(tx *bbolt.Tx) error {
			return tx.Bucket([]byte(orderBucket)).ForEach(func(_, _ []byte) error {
				count++
				return nil
			})
		})).To(Succeed())
		return count
	}

	It("removes the order entry with the expense", func() {
		Expect(store.Save(&Expense{ID: "exp-1"})).To(Succeed())
		Expect(store.Save(&Expense{ID: "exp-2"})).To(Succeed())
		Expect(countOrderKeys()).To(Equal(2))

		Expect(store.Delete("exp-1")).To(Succeed())
		Expect(countOrderKeys()).To(Equal(1))

		expenses, err := store.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(expenses).To(HaveLen(1))
		Expect(expenses[0].ID).To(Equal("exp-2"))
	})
})

var _ = Describe("MemoryStore snapshots", func() {
	It("does not expose internal state through List", func() {
		store := NewMemoryStore()
		Expect(store.Save(&Expense{ID: "exp-1", Amount: 10})).To(Succeed())

		expenses, err := store.List()
		Expect(err).NotTo(HaveOccurred())
		expenses[0].Amount = 999

		got, err := store.Get("exp-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Amount).To(Equal(10.0))
	})
})
