package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"apteka/internal/repository"
	"apteka/internal/service"
)

type Server struct {
	engine    *gin.Engine
	inventory *service.InventoryService
	orders    *service.OrderService
	sim       *service.SimulationService
}

func NewServer(inventory *service.InventoryService, orders *service.OrderService, sim *service.SimulationService) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors.Default())
	s := &Server{engine: r, inventory: inventory, orders: orders, sim: sim}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/health", s.health)

	api := s.engine.Group("/api")
	{
		api.GET("/inventory", s.getInventory)

		orders := api.Group("/orders")
		orders.GET("", s.listOrders)
		orders.POST("", s.createOrder)
		orders.DELETE(":id", s.deleteOrder)
		orders.POST(":id/items", s.addItem)
		orders.PATCH(":id/items/:itemId", s.updateQuantity)
		orders.DELETE(":id/items/:itemId", s.removeItem)

		api.POST("/move-item", s.moveItem)

		api.GET("/simulation", s.getSimulation)
		api.POST("/simulation/next-day", s.nextDay)

		api.GET("/debug/db", s.debugDB)
	}
}

// @Summary List inventory
// @Tags inventory
// @Produce json
// @Success 200 {array} domain.Drug
// @Failure 500 {object} map[string]string
// @Router /inventory [get]
func (s *Server) getInventory(c *gin.Context) {
	drugs, err := s.inventory.List(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, drugs)
}

// @Summary List orders with items
// @Tags orders
// @Produce json
// @Success 200 {array} domain.Order
// @Failure 500 {object} map[string]string
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	orders, err := s.orders.List(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

type createOrderReq struct {
	ID                     string   `json:"id"`
	CustomerName           string   `json:"customerName"`
	OrderDate              string   `json:"orderDate"`
	PrescriptionForDrugIDs []string `json:"prescriptionForDrugIds"`
}

// @Summary Create order
// @Tags orders
// @Accept json
// @Produce json
// @Param input body createOrderReq true "Order"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	_, err := s.orders.CreateOrder(c, req.ID, req.CustomerName, req.OrderDate, req.PrescriptionForDrugIDs)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary Delete order and return stock
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.orders.DeleteOrder(c, c.Param("id")); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type addItemReq struct {
	DrugID   string `json:"drugId"`
	Quantity int    `json:"quantity"`
}

// @Summary Add item to order
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body addItemReq true "Item"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/items [post]
func (s *Server) addItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.orders.AddItem(c, c.Param("id"), req.DrugID, req.Quantity); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type updateQuantityReq struct {
	Delta int `json:"delta"`
}

// @Summary Adjust item quantity by delta
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param itemId path string true "Item ID"
// @Param input body updateQuantityReq true "Delta"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/items/{itemId} [patch]
func (s *Server) updateQuantity(c *gin.Context) {
	var req updateQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.orders.UpdateQuantity(c, c.Param("id"), c.Param("itemId"), req.Delta); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary Remove item and return stock
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Param itemId path string true "Item ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/items/{itemId} [delete]
func (s *Server) removeItem(c *gin.Context) {
	if err := s.orders.RemoveItem(c, c.Param("id"), c.Param("itemId")); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type moveItemReq struct {
	ItemID        string `json:"itemId"`
	SourceOrderID string `json:"sourceOrderId"`
	TargetOrderID string `json:"targetOrderId"`
}

// @Summary Move item between orders
// @Tags orders
// @Accept json
// @Produce json
// @Param input body moveItemReq true "Move"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /move-item [post]
func (s *Server) moveItem(c *gin.Context) {
	var req moveItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.orders.MoveItem(c, req.ItemID, req.SourceOrderID, req.TargetOrderID); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary Current simulated date
// @Tags simulation
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /simulation [get]
func (s *Server) getSimulation(c *gin.Context) {
	date, err := s.sim.CurrentDate(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"currentDate": date})
}

type nextDayReq struct {
	CurrentDateStr string `json:"currentDateStr"`
}

// @Summary Advance simulated day
// @Tags simulation
// @Accept json
// @Produce json
// @Param input body nextDayReq true "New current date YYYY-MM-DD"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /simulation/next-day [post]
func (s *Server) nextDay(c *gin.Context) {
	var req nextDayReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.sim.AdvanceDay(c, req.CurrentDateStr); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary Dump the whole dataset
// @Tags debug
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 500 {object} map[string]string
// @Router /debug/db [get]
func (s *Server) debugDB(c *gin.Context) {
	drugs, err := s.inventory.List(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	orders, err := s.orders.List(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	date, err := s.sim.CurrentDate(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"currentDate": date,
		"drugs":       drugs,
		"orders":      orders,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPrescriptionRequired):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
