package database

import (
	"log"
	"os"

	"backend/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed loads the starter catalog and staff accounts into an empty database.
// It is a no-op when data already exists, so it is safe to call on every boot.
func Seed(db *gorm.DB) error {
	if err := seedUsers(db); err != nil {
		return err
	}
	return seedProducts(db)
}

func seedUsers(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "changeme123"
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []model.User{
		{Name: "John Doe", Email: "john@public.com", Role: model.RolePublic, IsActive: true, Password: string(hashed)},
		{Name: "MediCorp Pharmacies", Email: "purchasing@medicorp.com", Role: model.RoleWholesale, IsActive: true, LoyaltyPoints: 4500, Password: string(hashed)},
		{Name: "Admin User", Email: "admin@kingzypharma.com", Role: model.RoleAdmin, IsActive: true, Password: string(hashed)},
		{Name: "Logistics Team", Email: "delivery@kingzypharma.com", Role: model.RoleLogistics, IsActive: true, Password: string(hashed)},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}
	log.Printf("Seeded %d users", len(users))
	return nil
}

func seedProducts(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	products := []model.Product{
		{
			SKU:                  "AMX-500",
			Name:                 "Amoxicillin 500mg",
			Category:             "Antibiotics",
			Description:          "Broad-spectrum penicillin antibiotic used to treat bacterial infections.",
			PackSize:             "20 Capsules",
			Price:                3500.00,
			WholesalePrice:       2800.00,
			Stock:                500,
			RequiresPrescription: true,
			MinOrderQuantity:     50,
			ImageURL:             "https://images.unsplash.com/photo-1471864190281-a93a3070b6de?auto=format&fit=crop&w=400&q=80",
		},
		{
			SKU:                  "PCM-500",
			Name:                 "Paracetamol 500mg",
			Category:             "Pain Relief",
			Description:          "Effective analgesic and antipyretic for mild to moderate pain.",
			PackSize:             "100 Tablets",
			Price:                500.00,
			WholesalePrice:       350.00,
			Stock:                2000,
			RequiresPrescription: false,
			MinOrderQuantity:     100,
			ImageURL:             "https://images.unsplash.com/photo-1584308666744-24d5c474f2ae?auto=format&fit=crop&w=400&q=80",
		},
		{
			SKU:                  "CET-010",
			Name:                 "Cetirizine 10mg",
			Category:             "Allergy",
			Description:          "Antihistamine used to relieve allergy symptoms such as watery eyes and runny nose.",
			PackSize:             "30 Tablets",
			Price:                1200.00,
			WholesalePrice:       900.00,
			Stock:                850,
			RequiresPrescription: false,
			MinOrderQuantity:     50,
			ImageURL:             "https://images.unsplash.com/photo-1628771065518-0d82f1938462?auto=format&fit=crop&w=400&q=80",
		},
		{
			SKU:                  "MET-500",
			Name:                 "Metformin 500mg",
			Category:             "Diabetes",
			Description:          "First-line medication for the treatment of type 2 diabetes.",
			PackSize:             "60 Tablets",
			Price:                2500.00,
			WholesalePrice:       1800.00,
			Stock:                300,
			RequiresPrescription: true,
			MinOrderQuantity:     30,
			ImageURL:             "https://images.unsplash.com/photo-1587854692152-cbe660dbde88?auto=format&fit=crop&w=400&q=80",
		},
		{
			SKU:                  "VIT-D3",
			Name:                 "Vitamin D3 1000IU",
			Category:             "Vitamins",
			Description:          "Supports healthy bones, teeth, and muscle function.",
			PackSize:             "90 Softgels",
			Price:                4500.00,
			WholesalePrice:       3200.00,
			Stock:                120,
			RequiresPrescription: false,
			MinOrderQuantity:     10,
			ImageURL:             "https://images.unsplash.com/photo-1521590832167-7bcbfaa6381f?auto=format&fit=crop&w=400&q=80",
		},
	}
	if err := db.Create(&products).Error; err != nil {
		return err
	}
	log.Printf("Seeded %d products", len(products))
	return nil
}
