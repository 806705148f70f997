package boot

import (
	"log"
	"summit/src/common"
	"summit/src/config"
	"summit/src/db"
	"summit/src/lib"
	"summit/src/models"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Pass{},
		&models.PendingClaim{},
		&models.UpgradeRecord{},
		&models.Transaction{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	// The one-active-pass and one-pending-claim-per-reference rules are
	// partial unique indexes, which AutoMigrate cannot express.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_passes_one_active ON passes (user_id) WHERE status = 'active' AND deleted_at IS NULL`,
	).Error; err != nil {
		log.Fatalf("error creating active pass index: %s", err.Error())
	}
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_pending_booking ON pending_claims (user_id, booking_ref) WHERE status = 'pending' AND booking_ref <> '' AND deleted_at IS NULL`,
	).Error; err != nil {
		log.Fatalf("error creating pending claim index: %s", err.Error())
	}

	return db
}

// InitSweeper schedules the periodic expiry sweep over pending claims.
func InitSweeper() {
	lifecycle := common.NewClaimLifecycle(common.NewGormStore(db.GetDb()), nil)
	id, err := lib.CreateCronJob(func() {
		if _, err := lifecycle.SweepExpired(); err != nil {
			log.Printf("Error sweeping expired claims: %s\n", err.Error())
		}
	}, config.SweepInterval)
	if err != nil {
		log.Printf("Error scheduling claim sweep: %s\n", err.Error())
		return
	}
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	sched.Start()
	log.Printf("Claim sweep scheduled: %s\n", *id)
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Error shutting down scheduler: %s\n", err.Error())
	}
}
