package controller

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/credits"
	"vidora_backend/pkg/database"
	"vidora_backend/pkg/plan"
)

type AdminUpdateUserInput struct {
	Role          *model.UserRole `json:"role"`
	Plan          *plan.Type      `json:"plan"`
	CreditsDelta  *int            `json:"credits_delta"`
	SetIsVerified *bool           `json:"is_verified"`
}

// AdminListUsers sayfalı kullanıcı listesi, e-posta/isim araması destekler
func AdminListUsers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	search := c.Query("search")

	query := database.DB.Model(&model.User{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("email LIKE ? OR name LIKE ? OR username LIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)

	var users []model.User
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch users",
		})
	}

	// Abonelikleri tek sorguda topla
	userIDs := make([]uint, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}
	subsByUser := map[uint]model.Subscription{}
	if len(userIDs) > 0 {
		var subs []model.Subscription
		database.DB.Where("user_id IN ?", userIDs).Find(&subs)
		for _, s := range subs {
			subsByUser[s.UserID] = s
		}
	}

	type userRow struct {
		ID         uint      `json:"id"`
		Email      string    `json:"email"`
		Username   string    `json:"username"`
		Name       string    `json:"name"`
		Role       string    `json:"role"`
		IsVerified bool      `json:"is_verified"`
		Plan       plan.Type `json:"plan"`
		Credits    int       `json:"credits"`
		Status     string    `json:"subscription_status"`
		CreatedAt  time.Time `json:"created_at"`
	}

	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		row := userRow{
			ID:         u.ID,
			Email:      u.Email,
			Username:   u.Username,
			Name:       u.Name,
			Role:       string(u.Role),
			IsVerified: u.IsVerified,
			Plan:       plan.Free,
			CreatedAt:  u.CreatedAt,
		}
		if s, ok := subsByUser[u.ID]; ok {
			row.Plan = s.Plan
			row.Credits = s.Credits
			row.Status = string(s.Status)
		}
		rows = append(rows, row)
	}

	return c.JSON(fiber.Map{
		"users": rows,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// AdminUpdateUser rol, plan ve kredi bakiyesi üzerinde yönetici müdahalesi
func AdminUpdateUser(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user id",
		})
	}

	input := new(AdminUpdateUserInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var user model.User
	if err := database.DB.First(&user, uint(userID)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	if input.Role != nil {
		if *input.Role != model.RoleUser && *input.Role != model.RoleAdmin {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid role",
			})
		}
		if err := database.DB.Model(&user).Update("role", *input.Role).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not update role",
			})
		}
	}

	if input.SetIsVerified != nil {
		database.DB.Model(&user).Update("is_verified", *input.SetIsVerified)
	}

	if input.Plan != nil {
		if !plan.Valid(*input.Plan) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid plan",
			})
		}
		monthly := plan.GetPlanLimits(*input.Plan).MonthlyCredits
		sub, err := credits.GetOrCreateSubscription(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not load subscription",
			})
		}
		now := time.Now()
		if err := database.DB.Model(sub).Updates(map[string]interface{}{
			"plan":             *input.Plan,
			"status":           model.SubscriptionActive,
			"credits":          monthly,
			"monthly_credits":  monthly,
			"credits_reset_at": now,
		}).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not update plan",
			})
		}
		log.Printf("Admin set plan for user %d: %s", user.ID, *input.Plan)
	}

	if input.CreditsDelta != nil && *input.CreditsDelta != 0 {
		if err := adjustCredits(user.ID, *input.CreditsDelta); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("Admin adjusted credits for user %d: %+d", user.ID, *input.CreditsDelta)
	}

	sub, _ := credits.GetOrCreateSubscription(user.ID)
	return c.JSON(fiber.Map{
		"user":         user.GetPublicProfile(),
		"subscription": sub,
	})
}

// adjustCredits pozitif delta bakiye ekler, negatif delta koşullu düşer;
// bakiye hiçbir durumda negatife inemez
func adjustCredits(userID uint, delta int) error {
	if _, err := credits.GetOrCreateSubscription(userID); err != nil {
		return err
	}
	if delta > 0 {
		return credits.RefundCredits(userID, delta)
	}
	res := database.DB.Model(&model.Subscription{}).
		Where("user_id = ? AND credits >= ?", userID, -delta).
		Update("credits", gorm.Expr("credits - ?", -delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return credits.ErrInsufficientCredits
	}
	return nil
}

// AdminListRefundCandidates kredisi düşülmüş ama başarısız kalmış üretimler
func AdminListRefundCandidates(c *fiber.Ctx) error {
	var generations []model.Generation
	if err := database.DB.Unscoped().
		Where("status = ? AND credits_used > 0", model.GenerationFailed).
		Order("updated_at DESC").
		Limit(100).
		Find(&generations).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch refund candidates",
		})
	}

	return c.JSON(fiber.Map{
		"generations": generations,
		"count":       len(generations),
	})
}

// AdminRefundGeneration tek bir üretim için manuel iade tetikler
func AdminRefundGeneration(c *fiber.Ctx) error {
	generationID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid generation id",
		})
	}

	refunded, err := credits.RefundGeneration(uint(generationID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Refund failed",
		})
	}
	if refunded == 0 {
		return c.JSON(fiber.Map{
			"message":  "Nothing to refund",
			"refunded": 0,
		})
	}

	log.Printf("Admin refunded %d credits for generation %d", refunded, generationID)
	return c.JSON(fiber.Map{
		"message":  "Credits refunded",
		"refunded": refunded,
	})
}

// AdminGetStats genel sayılar: kullanıcı, üretim, abonelik dağılımı
func AdminGetStats(c *fiber.Ctx) error {
	var totalUsers, totalGenerations, activeSubscriptions int64
	database.DB.Model(&model.User{}).Count(&totalUsers)
	database.DB.Model(&model.Generation{}).Count(&totalGenerations)
	database.DB.Model(&model.Subscription{}).
		Where("status = ? AND plan <> ?", model.SubscriptionActive, plan.Free).
		Count(&activeSubscriptions)

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var byStatus []statusCount
	database.DB.Model(&model.Generation{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&byStatus)

	type planCount struct {
		Plan  string `json:"plan"`
		Count int64  `json:"count"`
	}
	var byPlan []planCount
	database.DB.Model(&model.Subscription{}).
		Select("plan, COUNT(*) as count").
		Group("plan").
		Scan(&byPlan)

	since := time.Now().AddDate(0, 0, -1)
	var lastDay int64
	database.DB.Model(&model.Generation{}).Where("created_at >= ?", since).Count(&lastDay)

	return c.JSON(fiber.Map{
		"total_users":          totalUsers,
		"total_generations":    totalGenerations,
		"active_subscriptions": activeSubscriptions,
		"generations_24h":      lastDay,
		"generations_by_status": byStatus,
		"subscriptions_by_plan": byPlan,
	})
}
