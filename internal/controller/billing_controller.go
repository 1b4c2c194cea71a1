package controller

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74"
	portalsession "github.com/stripe/stripe-go/v74/billingportal/session"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/customer"
	stripesub "github.com/stripe/stripe-go/v74/subscription"
	"github.com/stripe/stripe-go/v74/webhook"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/credits"
	"vidora_backend/pkg/database"
	"vidora_backend/pkg/email"
	"vidora_backend/pkg/plan"
	"vidora_backend/pkg/utils/jwt"
)

type CheckoutInput struct {
	Plan   plan.Type `json:"plan" validate:"required"`
	Yearly bool      `json:"yearly"`
}

func InitBillingController() {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
}

// ListPlans plan tablosunu fiyatlandırma sayfası için döndürür
func ListPlans(c *fiber.Ctx) error {
	type planInfo struct {
		Plan   plan.Type       `json:"plan"`
		Limits plan.PlanLimits `json:"limits"`
	}

	plans := []planInfo{
		{Plan: plan.Free, Limits: plan.GetPlanLimits(plan.Free)},
		{Plan: plan.Basic, Limits: plan.GetPlanLimits(plan.Basic)},
		{Plan: plan.Pro, Limits: plan.GetPlanLimits(plan.Pro)},
		{Plan: plan.Max, Limits: plan.GetPlanLimits(plan.Max)},
	}

	return c.JSON(plans)
}

// CreateCheckoutSession seçilen plan için Stripe Checkout oturumu başlatır
func CreateCheckoutSession(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(CheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.Plan == plan.Free || !plan.Valid(input.Plan) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid plan",
		})
	}

	priceID := plan.StripePriceID(input.Plan, input.Yearly)
	if priceID == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Plan price is not configured",
		})
	}

	var user model.User
	if err := database.DB.First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	sub, err := credits.GetOrCreateSubscription(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load subscription",
		})
	}

	// Stripe müşterisi yoksa oluştur
	customerID := sub.StripeCustomerID
	if customerID == "" {
		stripeCustomer, err := customer.New(&stripe.CustomerParams{
			Email: stripe.String(user.Email),
			Name:  stripe.String(user.Name),
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not create Stripe customer",
			})
		}
		customerID = stripeCustomer.ID
		database.DB.Model(sub).Update("stripe_customer_id", customerID)
	}

	baseURL := os.Getenv("APP_BASE_URL")
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(baseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(baseURL + "/billing/cancelled"),
	}
	params.AddMetadata("user_id", jwtUserIDString(claims.UserID))

	checkoutSession, err := session.New(params)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create checkout session",
		})
	}

	return c.JSON(fiber.Map{
		"checkout_url": checkoutSession.URL,
		"session_id":   checkoutSession.ID,
	})
}

// CreateBillingPortalSession Stripe müşteri portalına yönlendirme linki üretir
func CreateBillingPortalSession(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.Subscription
	if err := database.DB.Where("user_id = ?", claims.UserID).First(&sub).Error; err != nil || sub.StripeCustomerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No billing account found",
		})
	}

	portal, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(sub.StripeCustomerID),
		ReturnURL: stripe.String(os.Getenv("APP_BASE_URL") + "/billing"),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create billing portal session",
		})
	}

	return c.JSON(fiber.Map{
		"portal_url": portal.URL,
	})
}

// CancelSubscription aboneliği dönem sonunda iptal edilecek şekilde işaretler
func CancelSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var sub model.Subscription
	if err := database.DB.Where("user_id = ? AND status = ?", claims.UserID, model.SubscriptionActive).
		First(&sub).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	}

	if sub.StripeSubscriptionID == "" || sub.Plan == plan.Free {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Nothing to cancel on the free plan",
		})
	}

	_, err := stripesub.Update(sub.StripeSubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel Stripe subscription",
		})
	}

	now := time.Now()
	if err := database.DB.Model(&sub).Updates(map[string]interface{}{
		"cancel_at_period_end": true,
		"canceled_at":          now,
	}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update subscription status",
		})
	}

	if email.GlobalEmailService != nil {
		var user model.User
		if err := database.DB.First(&user, claims.UserID).Error; err == nil {
			expiresAt := now
			if sub.CurrentPeriodEnd != nil {
				expiresAt = *sub.CurrentPeriodEnd
			}
			if err := email.GlobalEmailService.SendSubscriptionCancelledEmail(user.Email, user.Name, string(sub.Plan), expiresAt); err != nil {
				log.Printf("Could not send subscription cancellation email: %v", err)
			}
		}
	}

	return c.JSON(fiber.Map{
		"message": "Subscription will be cancelled at period end",
	})
}

func GetMySubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	sub, err := credits.GetOrCreateSubscription(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load subscription",
		})
	}

	return c.JSON(sub)
}

// HandleStripeWebhook faturalama yaşam döngüsü olaylarını abonelik durumuna eşler
func HandleStripeWebhook(c *fiber.Ctx) error {
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")

	payload := c.Body()
	signatureHeader := c.Get("Stripe-Signature")

	event, err := webhook.ConstructEvent(payload, signatureHeader, webhookSecret)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	log.Printf("Processing Stripe webhook event: %s", event.Type)

	switch event.Type {
	case "checkout.session.completed":
		var checkoutSession stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &checkoutSession); err != nil {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}
		if err := handleCheckoutCompleted(&checkoutSession); err != nil {
			log.Printf("Checkout completion failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not process checkout",
			})
		}

	case "customer.subscription.created", "customer.subscription.updated":
		var stripeSubscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSubscription); err != nil {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}
		if err := handleSubscriptionUpdate(&stripeSubscription); err != nil {
			log.Printf("Subscription update failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not update subscription",
			})
		}

	case "customer.subscription.deleted":
		var stripeSubscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSubscription); err != nil {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}
		if err := handleSubscriptionDeleted(&stripeSubscription); err != nil {
			log.Printf("Subscription deletion failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not process cancellation",
			})
		}

	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}
		if err := handleInvoicePaid(&invoice); err != nil {
			log.Printf("Invoice handling failed: %v", err)
		}

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}
		if err := handleInvoiceFailed(&invoice); err != nil {
			log.Printf("Invoice failure handling failed: %v", err)
		}
	}

	return c.SendStatus(fiber.StatusOK)
}

// handleCheckoutCompleted ödemesi tamamlanan kullanıcıyı yeni plana geçirir ve
// bakiyeyi planın aylık tahsisatına eşitler
func handleCheckoutCompleted(checkoutSession *stripe.CheckoutSession) error {
	userID := parseUserID(checkoutSession.Metadata["user_id"])
	if userID == 0 && checkoutSession.Customer != nil {
		// Metadata yoksa müşteri id ile bul
		var sub model.Subscription
		if err := database.DB.Where("stripe_customer_id = ?", checkoutSession.Customer.ID).First(&sub).Error; err != nil {
			log.Printf("No user found for checkout session %s", checkoutSession.ID)
			return nil
		}
		userID = sub.UserID
	}
	if userID == 0 || checkoutSession.Subscription == nil {
		return nil
	}

	stripeSubscription, err := stripesub.Get(checkoutSession.Subscription.ID, nil)
	if err != nil {
		return err
	}

	priceID := subscriptionPriceID(stripeSubscription)
	newPlan := plan.DeterminePlanType(priceID)
	if newPlan == plan.Free {
		newPlan = plan.Basic
	}
	monthly := plan.GetPlanLimits(newPlan).MonthlyCredits

	periodStart := time.Unix(stripeSubscription.CurrentPeriodStart, 0)
	periodEnd := time.Unix(stripeSubscription.CurrentPeriodEnd, 0)
	now := time.Now()

	sub, err := credits.GetOrCreateSubscription(userID)
	if err != nil {
		return err
	}

	if err := database.DB.Model(sub).Updates(map[string]interface{}{
		"plan":                   newPlan,
		"status":                 model.SubscriptionActive,
		"credits":                monthly,
		"monthly_credits":        monthly,
		"stripe_subscription_id": stripeSubscription.ID,
		"stripe_price_id":        priceID,
		"current_period_start":   periodStart,
		"current_period_end":     periodEnd,
		"cancel_at_period_end":   false,
		"canceled_at":            nil,
		"credits_reset_at":       now,
	}).Error; err != nil {
		return err
	}

	log.Printf("Subscription activated for user %d: %s", userID, newPlan)

	if email.GlobalEmailService != nil {
		var user model.User
		if err := database.DB.First(&user, userID).Error; err == nil {
			if err := email.GlobalEmailService.SendSubscriptionStartedEmail(user.Email, user.Name, string(newPlan), monthly, periodEnd, false); err != nil {
				log.Printf("Could not send subscription email: %v", err)
			}
		}
	}

	return nil
}

func handleSubscriptionUpdate(stripeSubscription *stripe.Subscription) error {
	var sub model.Subscription
	if err := database.DB.Where("stripe_subscription_id = ?", stripeSubscription.ID).First(&sub).Error; err != nil {
		log.Printf("No local subscription for Stripe subscription %s", stripeSubscription.ID)
		return nil
	}

	priceID := subscriptionPriceID(stripeSubscription)
	newPlan := plan.DeterminePlanType(priceID)
	if newPlan == plan.Free {
		newPlan = sub.Plan
	}
	status := mapStripeStatus(stripeSubscription.Status)

	periodStart := time.Unix(stripeSubscription.CurrentPeriodStart, 0)
	periodEnd := time.Unix(stripeSubscription.CurrentPeriodEnd, 0)

	updates := map[string]interface{}{
		"plan":                 newPlan,
		"status":               status,
		"stripe_price_id":      priceID,
		"current_period_start": periodStart,
		"current_period_end":   periodEnd,
		"cancel_at_period_end": stripeSubscription.CancelAtPeriodEnd,
	}
	if stripeSubscription.CanceledAt > 0 {
		updates["canceled_at"] = time.Unix(stripeSubscription.CanceledAt, 0)
	} else {
		updates["canceled_at"] = nil
	}

	if err := database.DB.Model(&sub).Updates(updates).Error; err != nil {
		return err
	}

	// Yenileme: bakiye tahsisata eşitlenir, eklenmez
	if status == model.SubscriptionActive && !stripeSubscription.CancelAtPeriodEnd {
		monthly := plan.GetPlanLimits(newPlan).MonthlyCredits
		now := time.Now()
		if err := database.DB.Model(&sub).Updates(map[string]interface{}{
			"credits":          monthly,
			"monthly_credits":  monthly,
			"credits_reset_at": now,
		}).Error; err != nil {
			return err
		}
	}

	log.Printf("Subscription %s updated: plan=%s status=%s", stripeSubscription.ID, newPlan, status)
	return nil
}

// handleSubscriptionDeleted kullanıcıyı FREE plana düşürür
func handleSubscriptionDeleted(stripeSubscription *stripe.Subscription) error {
	freeCredits := plan.GetPlanLimits(plan.Free).MonthlyCredits
	now := time.Now()

	return database.DB.Model(&model.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscription.ID).
		Updates(map[string]interface{}{
			"plan":            plan.Free,
			"status":          model.SubscriptionCanceled,
			"credits":         freeCredits,
			"monthly_credits": freeCredits,
			"canceled_at":     now,
		}).Error
}

// handleInvoicePaid aylık yenileme: bakiye planın tahsisatına sıfırlanır
func handleInvoicePaid(invoice *stripe.Invoice) error {
	if invoice.Subscription == nil {
		return nil
	}

	var sub model.Subscription
	if err := database.DB.Where("stripe_subscription_id = ?", invoice.Subscription.ID).First(&sub).Error; err != nil {
		return nil
	}

	monthly := plan.GetPlanLimits(sub.Plan).MonthlyCredits
	now := time.Now()
	if err := database.DB.Model(&sub).Updates(map[string]interface{}{
		"credits":          monthly,
		"monthly_credits":  monthly,
		"credits_reset_at": now,
		"status":           model.SubscriptionActive,
	}).Error; err != nil {
		return err
	}

	log.Printf("Credits reset for subscription %s", invoice.Subscription.ID)
	return nil
}

func handleInvoiceFailed(invoice *stripe.Invoice) error {
	if invoice.Subscription == nil {
		return nil
	}

	return database.DB.Model(&model.Subscription{}).
		Where("stripe_subscription_id = ?", invoice.Subscription.ID).
		Update("status", model.SubscriptionPastDue).Error
}

func jwtUserIDString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseUserID(raw string) uint {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func subscriptionPriceID(stripeSubscription *stripe.Subscription) string {
	if stripeSubscription.Items != nil && len(stripeSubscription.Items.Data) > 0 && stripeSubscription.Items.Data[0].Price != nil {
		return stripeSubscription.Items.Data[0].Price.ID
	}
	return ""
}

func mapStripeStatus(status stripe.SubscriptionStatus) model.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return model.SubscriptionActive
	case stripe.SubscriptionStatusCanceled:
		return model.SubscriptionCanceled
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return model.SubscriptionPastDue
	case stripe.SubscriptionStatusPaused:
		return model.SubscriptionPaused
	case stripe.SubscriptionStatusTrialing:
		return model.SubscriptionTrialing
	default:
		return model.SubscriptionActive
	}
}
