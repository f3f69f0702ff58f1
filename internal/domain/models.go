package domain

// Drug представляет препарат в каталоге аптеки
type Drug struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Stock                int    `json:"stock"`
	RequiresPrescription bool   `json:"requiresPrescription"`
}

// OrderItem позиция заказа: количество одного препарата,
// зарезервированное под одним заказом
type OrderItem struct {
	ID       string `json:"id"`
	OrderID  string `json:"orderId"`
	DrugID   string `json:"drugId"`
	Quantity int    `json:"quantity"`
}

// Order сущность заказа. OrderDate хранится строкой YYYY-MM-DD,
// лексикографическое сравнение совпадает с календарным.
// PrescriptionForDrugIDs — множество препаратов, на которые предъявлен рецепт.
type Order struct {
	ID                     string      `json:"id"`
	CustomerName           string      `json:"customerName"`
	OrderDate              string      `json:"orderDate"`
	PrescriptionForDrugIDs []string    `json:"prescriptionForDrugIds"`
	Items                  []OrderItem `json:"items"`
}

// HasPrescriptionFor проверяет, предъявлен ли рецепт на препарат
func (o *Order) HasPrescriptionFor(drugID string) bool {
	for _, id := range o.PrescriptionForDrugIDs {
		if id == drugID {
			return true
		}
	}
	return false
}
