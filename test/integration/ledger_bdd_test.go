//go:build integration

package integration

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"playtimed/internal/domain"
	"playtimed/internal/infra"
	"playtimed/internal/ledger"
)

var _ = Describe("Ledger persistence", func() {
	var (
		tmpDir string
		logger *zap.Logger
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "playtimed-integration-*")
		Expect(err).NotTo(HaveOccurred())
		logger = zap.NewNop()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("File store", func() {
		var storePath string

		BeforeEach(func() {
			storePath = filepath.Join(tmpDir, "ledger")
		})

		Context("when the daemon restarts", func() {
			It("resumes from the larger of persisted and reported age", func() {
				key := domain.LedgerKey{Command: "steam", PID: 4242, Day: domain.Today()}

				// First run accumulates an hour and persists it.
				store := infra.NewFileLedgerStore(storePath)
				led, err := ledger.Open(store, logger)
				Expect(err).NotTo(HaveOccurred())
				led.Update(key, 3600)
				Expect(led.Persist()).To(Succeed())
				Expect(store.Close()).To(Succeed())

				// Second run sees the same process slightly older.
				store = infra.NewFileLedgerStore(storePath)
				led, err = ledger.Open(store, logger)
				Expect(err).NotTo(HaveOccurred())
				total := led.Update(key, 3700)
				Expect(total).To(Equal(int64(3700)))
				Expect(led.DailyTotal(key.Day)).To(Equal(int64(3700)))
				Expect(led.Persist()).To(Succeed())

				// Reload once more and verify the file agrees.
				entries, err := infra.NewFileLedgerStore(storePath).Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveKeyWithValue(key, int64(3700)))
			})

			It("keeps the persisted value when the process was restarted", func() {
				key := domain.LedgerKey{Command: "steam", PID: 4242, Day: domain.Today()}

				store := infra.NewFileLedgerStore(storePath)
				led, err := ledger.Open(store, logger)
				Expect(err).NotTo(HaveOccurred())
				led.Update(key, 3600)
				Expect(led.Persist()).To(Succeed())

				// The game was relaunched with the same pid, so the
				// reported age is small again. Time already spent today
				// must not be forgotten.
				store = infra.NewFileLedgerStore(storePath)
				led, err = ledger.Open(store, logger)
				Expect(err).NotTo(HaveOccurred())
				Expect(led.Update(key, 200)).To(Equal(int64(3600)))
			})
		})

		Context("when the store file is corrupt", func() {
			It("refuses to open", func() {
				Expect(os.WriteFile(storePath, []byte("garbage line\n"), 0600)).To(Succeed())

				_, err := ledger.Open(infra.NewFileLedgerStore(storePath), logger)
				Expect(err).To(MatchError(domain.ErrCorruptStore))
			})
		})
	})

	Describe("Encrypted store", func() {
		It("round-trips entries through the same key", func() {
			dbPath := filepath.Join(tmpDir, "ledger.db")
			key, err := infra.GenerateKey()
			Expect(err).NotTo(HaveOccurred())

			store, err := infra.NewSQLLedgerStore(dbPath, key)
			Expect(err).NotTo(HaveOccurred())

			entries := map[domain.LedgerKey]int64{
				{Command: "steam", PID: 4242, Day: "2026-08-29"}: 1800,
				{Command: "dota2", PID: 7, Day: "2026-08-29"}:    600,
			}
			Expect(store.Save(entries)).To(Succeed())
			Expect(store.Close()).To(Succeed())

			reopened, err := infra.NewSQLLedgerStore(dbPath, key)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			loaded, err := reopened.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(entries))
		})
	})
})
