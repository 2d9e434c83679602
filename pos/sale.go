package pos

import (
	"fmt"
	"strings"

	"termomaz/database"
	"termomaz/mappers"
	"termomaz/model"
	"termomaz/order"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Register rings up counter sales on top of the order service, so every line
// goes through the same stock and total bookkeeping as a regular order.
type Register struct {
	Orders *order.Service
}

func NewRegister(orders *order.Service) *Register {
	return &Register{Orders: orders}
}

// NewReceiptNumber returns a short, human-readable receipt reference such as V-20261019-1A2B3C4D.
func NewReceiptNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("V-%s-%s", model.Now().Format("20060102"), strings.ToUpper(id[:8]))
}

// Sale records a whole checkout inside tx: the order, its lines and the payment.
// The payment is the tendered amount capped at the total; change is what is handed back.
// Any failing line aborts the sale and the caller's rollback undoes the rest.
func (reg *Register) Sale(tx *sqlx.Tx, req model.SaleRequest) (*model.SaleReceipt, error) {
	if len(req.Items) == 0 {
		return nil, model.NewValidationError("items", "requiere al menos 1")
	}
	tendered := req.Tendered.Round(2)
	if tendered.IsNegative() {
		return nil, model.ErrInvalidAmount
	}

	o, err := reg.Orders.Create(tx, req.ClientID, "")
	if err != nil {
		return nil, err
	}
	o.ReceiptNumber = NewReceiptNumber()
	if err := database.SetReceiptNumberInTx(tx, o.ID, o.ReceiptNumber); err != nil {
		return nil, err
	}

	for _, line := range req.Items {
		if _, err := reg.Orders.AddItem(tx, o.ID, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}

	current, err := database.GetOrderByID(tx, o.ID)
	if err != nil {
		return nil, err
	}

	receipt := &model.SaleReceipt{Tendered: tendered, Change: decimal.Zero}
	payAmount := decimal.Min(tendered, current.Total)
	if payAmount.IsPositive() {
		payment, updated, err := reg.Orders.RecordPayment(tx, o.ID, payAmount, req.Method)
		if err != nil {
			return nil, err
		}
		receipt.Payment = payment
		current = updated
	}
	if tendered.GreaterThan(current.Total) {
		receipt.Change = tendered.Sub(current.Total)
	}

	items, err := database.GetOrderItems(tx, o.ID)
	if err != nil {
		return nil, err
	}
	receipt.Order = *current
	receipt.Items = items
	if req.ClientID != nil {
		c, err := database.GetClientByID(tx, *req.ClientID)
		if err != nil {
			return nil, err
		}
		receipt.ClientName = c.Name
	}
	receipt.ClientName = mappers.ClientLabel(receipt.ClientName)
	return receipt, nil
}
