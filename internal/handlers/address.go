// internal/handlers/address.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/address"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

type AddressHandler struct {
	addressService *services.AddressService
}

func NewAddressHandler(addressService *services.AddressService) *AddressHandler {
	return &AddressHandler{addressService: addressService}
}

// GET /addresses
func (h *AddressHandler) ListAddresses(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	addresses, err := h.addressService.ListAddresses(c.Request.Context(), userID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, addresses)
}

// GET /addresses/default
func (h *AddressHandler) GetDefaultAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	addr, err := h.addressService.GetDefaultAddress(c.Request.Context(), userID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, addr)
}

// GET /addresses/:id
func (h *AddressHandler) GetAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	addr, err := h.addressService.GetAddress(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, addr)
}

// POST /addresses
func (h *AddressHandler) CreateAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CreateAddressRequest
	if !bindJSON(c, &req) {
		return
	}

	addr, err := h.addressService.CreateAddress(c.Request.Context(), userID, &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, addr)
}

// PUT /addresses/:id
func (h *AddressHandler) UpdateAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var patch address.Patch
	if !bindJSON(c, &patch) {
		return
	}

	addr, err := h.addressService.UpdateAddress(c.Request.Context(), userID, c.Param("id"), patch)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, addr)
}

// PUT /addresses/:id/default
func (h *AddressHandler) SetDefaultAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	addr, err := h.addressService.SetDefault(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, addr)
}

// DELETE /addresses/:id
func (h *AddressHandler) DeleteAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.addressService.DeleteAddress(c.Request.Context(), userID, c.Param("id")); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyAddressDeleted, nil)
}
