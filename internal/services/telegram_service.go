package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/models"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramService sends back-office notifications to a Telegram chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	client      *http.Client
	db          *gorm.DB
	log         logrus.FieldLogger
}

// NewTelegramService creates a new TelegramService. db is used to look up customer details.
func NewTelegramService(botToken, adminChatID string, db *gorm.DB, log logrus.FieldLogger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     telegramAPIBase,
		client:      &http.Client{Timeout: 10 * time.Second},
		db:          db,
		log:         log.WithField("component", "telegram"),
	}
}

// Enabled reports whether both the bot token and admin chat are configured.
func (s *TelegramService) Enabled() bool {
	return s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug("bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)
	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.log.Debug("admin chat not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// OrderNotification contains order data for Telegram notification.
type OrderNotification struct {
	OrderID       string
	Items         []OrderItemNotification
	TotalAmount   decimal.Decimal
	UserName      string
	UserPhone     string
	Address       string
	PaymentMethod string
	Status        string
}

// OrderItemNotification contains order item data.
type OrderItemNotification struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
	Subtotal decimal.Decimal
}

// FormatPrice renders an amount with thousand separators, keeping cents when present.
func FormatPrice(amount decimal.Decimal) string {
	whole := amount.Truncate(0)
	digits := whole.Abs().String()

	var out strings.Builder
	if amount.IsNegative() {
		out.WriteByte('-')
	}
	for i, digit := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(digit)
	}

	if frac := amount.Sub(whole).Abs(); !frac.IsZero() {
		out.WriteString(strings.TrimPrefix(frac.StringFixed(2), "0"))
	}
	return out.String()
}

// NotifyNewOrder sends notification about new order to admin chat.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order OrderNotification) error {
	var items strings.Builder
	for i, item := range order.Items {
		fmt.Fprintf(&items, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.Name),
			item.Quantity,
			FormatPrice(item.Price),
			FormatPrice(item.Subtotal),
		)
	}

	message := fmt.Sprintf(`<b>NEW ORDER</b>
<b>Order:</b> %s
<b>Customer:</b> %s
<b>Phone:</b> %s
<b>Deliver to:</b> %s
<b>Items:</b>
%s
<b>Total:</b> %s
<b>Payment:</b> %s
<b>Status:</b> %s`,
		order.OrderID,
		html.EscapeString(order.UserName),
		html.EscapeString(order.UserPhone),
		html.EscapeString(order.Address),
		items.String(),
		FormatPrice(order.TotalAmount),
		html.EscapeString(order.PaymentMethod),
		order.Status,
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}

// PaymentSuccessNotification contains payment success data.
type PaymentSuccessNotification struct {
	OrderID       string
	Amount        decimal.Decimal
	PaymentMethod string
	PaidAt        time.Time
}

// NotifyPaymentSuccess sends notification about successful payment.
func (s *TelegramService) NotifyPaymentSuccess(ctx context.Context, payment PaymentSuccessNotification) error {
	message := fmt.Sprintf(`<b>PAYMENT RECEIVED</b>
<b>Order:</b> %s
<b>Amount:</b> %s
<b>Method:</b> %s
<b>Paid at:</b> %s
<i>Order confirmed</i>`,
		payment.OrderID,
		FormatPrice(payment.Amount),
		html.EscapeString(payment.PaymentMethod),
		payment.PaidAt.Format("2006-01-02 15:04"),
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}

// OrderPlaced notifies the admin chat in the background.
func (s *TelegramService) OrderPlaced(_ context.Context, order *models.Order) {
	if !s.Enabled() {
		return
	}
	snapshot := *order
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.NotifyNewOrder(ctx, s.buildOrderNotification(ctx, &snapshot)); err != nil {
			s.log.WithError(err).WithField("order_id", snapshot.ID).Warn("new order notification failed")
		}
	}()
}

// OrderStatusChanged is not forwarded to Telegram.
func (s *TelegramService) OrderStatusChanged(context.Context, *models.Order, models.OrderStatus) {}

// PaymentUpdated notifies the admin chat when a payment becomes Paid.
func (s *TelegramService) PaymentUpdated(_ context.Context, order *models.Order, payment *models.Payment) {
	if !s.Enabled() || payment.Status != models.PaymentStatusPaid {
		return
	}
	note := PaymentSuccessNotification{
		OrderID:       order.ID.String(),
		Amount:        payment.AmountPaid,
		PaymentMethod: payment.PaymentMethod,
		PaidAt:        time.Now(),
	}
	if payment.PaidAt != nil {
		note.PaidAt = *payment.PaidAt
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.NotifyPaymentSuccess(ctx, note); err != nil {
			s.log.WithError(err).WithField("order_id", note.OrderID).Warn("payment notification failed")
		}
	}()
}

func (s *TelegramService) buildOrderNotification(ctx context.Context, order *models.Order) OrderNotification {
	note := OrderNotification{
		OrderID:     order.ID.String(),
		TotalAmount: order.TotalAmount,
		UserName:    "unknown",
		UserPhone:   "-",
		Address:     "-",
		Status:      string(order.Status),
	}
	if order.Payment != nil {
		note.PaymentMethod = order.Payment.PaymentMethod
	}
	for _, item := range order.Items {
		note.Items = append(note.Items, OrderItemNotification{
			Name:     item.MenuName,
			Quantity: item.Quantity,
			Price:    item.PriceEach,
			Subtotal: item.Subtotal,
		})
	}

	if s.db == nil {
		return note
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", order.UserID).Error; err == nil {
		note.UserName = profile.Name
		if profile.Phone != nil {
			note.UserPhone = *profile.Phone
		}
	}
	var address models.Address
	if err := s.db.WithContext(ctx).First(&address, "id = ?", order.AddressID).Error; err == nil {
		note.Address = strings.TrimSpace(address.Street + ", " + address.City + " " + address.PostalCode)
	}
	return note
}
