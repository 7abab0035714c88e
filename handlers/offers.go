// handlers/offers.go
package handlers

import (
	"vaulty/database"
	"vaulty/ledger"
	"vaulty/middleware"
	"vaulty/models"

	"github.com/gofiber/fiber/v2"
)

type CreateOfferRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int    `json:"price"`
}

// CreateOffer publishes a service listing. Price bounds apply at creation
// only; later bound changes never invalidate existing listings.
func CreateOffer(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}
	if middleware.IsGuest(c) {
		return c.Status(403).JSON(fiber.Map{"error": "Guests cannot publish offers"})
	}

	var req CreateOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Title == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Title required"})
	}
	if !ledger.ValidOfferPrice(req.Price) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Price out of range",
			"min":   ledger.OfferPriceMin,
			"max":   ledger.OfferPriceMax,
		})
	}

	offer := models.Offer{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		OwnerID:     userID,
	}

	db := database.GetDB()
	if err := db.Create(&offer).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create offer"})
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"offer":   offer,
	})
}

// GetOffers lists marketplace offers, newest first.
func GetOffers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	db := database.GetDB()
	var offers []models.Offer
	if err := db.Preload("Owner").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&offers).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch offers"})
	}

	for i := range offers {
		if offers[i].Owner != nil {
			offers[i].Owner.Password = ""
			offers[i].Owner.Email = nil
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"offers":  offers,
	})
}

// DeleteOffer removes the caller's own listing.
func DeleteOffer(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid offer id"})
	}

	db := database.GetDB()
	res := db.Where("id = ? AND owner_id = ?", id, userID).Delete(&models.Offer{})
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to delete offer"})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "Offer not found"})
	}

	return c.JSON(fiber.Map{"success": true})
}

type CreateCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int    `json:"price"`
}

// CreateCourse publishes a course listing. Unlike offers, any positive
// price is allowed.
func CreateCourse(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}
	if middleware.IsGuest(c) {
		return c.Status(403).JSON(fiber.Map{"error": "Guests cannot publish courses"})
	}

	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Title == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Title required"})
	}
	if req.Price <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Price must be positive"})
	}

	course := models.Course{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		OwnerID:     userID,
	}

	db := database.GetDB()
	if err := db.Create(&course).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create course"})
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"course":  course,
	})
}

// GetCourses lists course listings, newest first.
func GetCourses(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	db := database.GetDB()
	var courses []models.Course
	if err := db.Preload("Owner").Order("created_at DESC").Limit(limit).Find(&courses).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch courses"})
	}

	for i := range courses {
		if courses[i].Owner != nil {
			courses[i].Owner.Password = ""
			courses[i].Owner.Email = nil
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"courses": courses,
	})
}
