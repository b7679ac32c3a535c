// internal/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

// CartHandler serves the cart, the wishlist and the comparison list, the
// three per-user line item collections.
type CartHandler struct {
	cartService     *services.CartService
	wishlistService *services.WishlistService
	compareService  *services.CompareService
}

func NewCartHandler(cartService *services.CartService, wishlistService *services.WishlistService, compareService *services.CompareService) *CartHandler {
	return &CartHandler{
		cartService:     cartService,
		wishlistService: wishlistService,
		compareService:  compareService,
	}
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, view)
}

// POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.cartService.AddItem(c.Request.Context(), userID, &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyCartUpdated, view)
}

// PUT /cart/items/:productId
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.SetQuantityRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.cartService.SetQuantity(c.Request.Context(), userID, c.Param("productId"), req.Quantity)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyCartUpdated, view)
}

// DELETE /cart/items/:productId
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := h.cartService.RemoveItem(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyCartUpdated, view)
}

// DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := h.cartService.Clear(c.Request.Context(), userID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyCartCleared, view)
}

// GET /wishlist
func (h *CartHandler) GetWishlist(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	items, err := h.wishlistService.GetWishlist(c.Request.Context(), userID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, items)
}

// POST /wishlist/:productId
func (h *CartHandler) AddToWishlist(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	items, err := h.wishlistService.AddItem(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, items)
}

// DELETE /wishlist/:productId
func (h *CartHandler) RemoveFromWishlist(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	items, err := h.wishlistService.RemoveItem(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, items)
}

// POST /wishlist/:productId/move-to-cart
func (h *CartHandler) MoveWishlistItemToCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	moved, err := h.wishlistService.MoveToCart(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyWishlistMovedToCart, moved)
}

// GET /compare
func (h *CartHandler) GetCompare(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	items, err := h.compareService.GetCompare(c.Request.Context(), userID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, items)
}

// POST /compare/:productId
func (h *CartHandler) AddToCompare(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	items, err := h.compareService.AddItem(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, items)
}

// DELETE /compare/:productId
func (h *CartHandler) RemoveFromCompare(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	items, err := h.compareService.RemoveItem(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, items)
}

// POST /compare/move-to-cart
func (h *CartHandler) MoveCompareToCart(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	moved, err := h.compareService.MoveAllToCart(c.Request.Context(), userID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyCompareMovedToCart, moved)
}
