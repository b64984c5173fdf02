// internal/tests/registry_api_test.go
package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/chaincert/chaincert-backend/internal/config"
	"github.com/chaincert/chaincert-backend/internal/handlers"
	"github.com/chaincert/chaincert-backend/internal/ledger"
	"github.com/chaincert/chaincert-backend/internal/middleware"
	"github.com/chaincert/chaincert-backend/internal/registry"
	"github.com/chaincert/chaincert-backend/internal/services"
	"github.com/chaincert/chaincert-backend/internal/utils"
)

const testAuthorityAddress = "0x1111111111111111111111111111111111111111"

// RegistryAPITestSuite exercises the HTTP surface end to end against
// the in-memory registry and ledger. No database: the read-model and
// audit writes are best-effort and skipped when none is configured.
type RegistryAPITestSuite struct {
	suite.Suite
	router *gin.Engine
	ledger *ledger.Ledger

	authorityToken string
	aliceToken     string
	aliceAddress   string
	bobToken       string
	bobAddress     string
}

func (suite *RegistryAPITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret")

	cfg := &config.Config{Environment: "test"}

	suite.ledger = ledger.New()
	reg := registry.New(
		registry.Address(testAuthorityAddress),
		suite.ledger,
		services.NewNotificationService(nil),
	)

	registryService := services.NewRegistryService(reg, nil)
	walletService := services.NewWalletService(nil, suite.ledger, cfg)
	productHandler := handlers.NewProductHandler(registryService)
	walletHandler := handlers.NewWalletHandler(walletService)

	suite.router = gin.New()
	v1 := suite.router.Group("/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/label", productHandler.GetProductLabel)

			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", productHandler.MintProduct)
				protected.POST("/claim", productHandler.ClaimProduct)
				protected.POST("/:id/listing", productHandler.PutForSale)
				protected.POST("/:id/buy", productHandler.BuyProduct)
				protected.POST("/:id/transfer", productHandler.TransferProduct)
			}
		}

		v1.GET("/accounts/:address/products", productHandler.GetProductsByOwner)

		wallet := v1.Group("/wallet")
		wallet.Use(middleware.AuthRequired())
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.POST("/deposit", walletHandler.CreateDeposit)
		}
	}

	suite.authorityToken = suite.issueToken("authority", testAuthorityAddress, "admin")
	suite.aliceAddress = utils.DeriveAddress("alice")
	suite.aliceToken = suite.issueToken("alice", suite.aliceAddress, "user")
	suite.bobAddress = utils.DeriveAddress("bob")
	suite.bobToken = suite.issueToken("bob", suite.bobAddress, "user")
}

func (suite *RegistryAPITestSuite) issueToken(username, address, role string) string {
	token, err := utils.GenerateJWT(uuid.New(), username, address, role, 1)
	suite.Require().NoError(err)
	return token
}

func (suite *RegistryAPITestSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *RegistryAPITestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func (suite *RegistryAPITestSuite) errorCode(w *httptest.ResponseRecorder) string {
	response := suite.decode(w)
	errObj, ok := response["error"].(map[string]interface{})
	suite.Require().True(ok, "expected error envelope, got %s", w.Body.String())
	return errObj["code"].(string)
}

func (suite *RegistryAPITestSuite) mint(serial, publicID string) {
	w := suite.request("POST", "/v1/products", suite.authorityToken, map[string]interface{}{
		"enterprise":    testAuthorityAddress,
		"metadata_uri":  "ipfs://" + serial,
		"serial_number": serial,
		"public_id":     publicID,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (suite *RegistryAPITestSuite) claim(token, serial string) {
	w := suite.request("POST", "/v1/products/claim", token, map[string]interface{}{
		"serial_number": serial,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *RegistryAPITestSuite) deposit(token string, amount uint64) {
	w := suite.request("POST", "/v1/wallet/deposit", token, map[string]interface{}{
		"amount": amount,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (suite *RegistryAPITestSuite) TestMintRequiresAuthentication() {
	w := suite.request("POST", "/v1/products", "", map[string]interface{}{
		"enterprise":    testAuthorityAddress,
		"metadata_uri":  "ipfs://x",
		"serial_number": "SN-1",
		"public_id":     "PID-1",
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *RegistryAPITestSuite) TestMintRejectsNonAuthority() {
	w := suite.request("POST", "/v1/products", suite.aliceToken, map[string]interface{}{
		"enterprise":    testAuthorityAddress,
		"metadata_uri":  "ipfs://x",
		"serial_number": "SN-1",
		"public_id":     "PID-1",
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "NOT_AUTHORITY", suite.errorCode(w))
}

func (suite *RegistryAPITestSuite) TestMintRejectsDuplicates() {
	suite.mint("SN-1", "PID-1")

	w := suite.request("POST", "/v1/products", suite.authorityToken, map[string]interface{}{
		"enterprise":    testAuthorityAddress,
		"metadata_uri":  "ipfs://x",
		"serial_number": "SN-1",
		"public_id":     "PID-other",
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "DUPLICATE_SERIAL_NUMBER", suite.errorCode(w))

	w = suite.request("POST", "/v1/products", suite.authorityToken, map[string]interface{}{
		"enterprise":    testAuthorityAddress,
		"metadata_uri":  "ipfs://x",
		"serial_number": "SN-other",
		"public_id":     "PID-1",
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "DUPLICATE_PUBLIC_ID", suite.errorCode(w))
}

func (suite *RegistryAPITestSuite) TestProductLookupByEitherKey() {
	suite.mint("SN-1", "PID-1")

	for _, key := range []string{"PID-1", "SN-1"} {
		w := suite.request("GET", "/v1/products/"+key, "", nil)
		suite.Require().Equal(http.StatusOK, w.Code)

		data := suite.decode(w)["data"].(map[string]interface{})
		assert.Equal(suite.T(), "SN-1", data["serial_number"])
		assert.Equal(suite.T(), "PID-1", data["public_id"])
		assert.Equal(suite.T(), false, data["is_claimed"])
	}

	w := suite.request("GET", "/v1/products/unknown", "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "PRODUCT_NOT_FOUND", suite.errorCode(w))
}

func (suite *RegistryAPITestSuite) TestClaimIsExclusive() {
	suite.mint("SN-1", "PID-1")
	suite.claim(suite.aliceToken, "SN-1")

	w := suite.request("POST", "/v1/products/claim", suite.bobToken, map[string]interface{}{
		"serial_number": "SN-1",
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "ALREADY_CLAIMED", suite.errorCode(w))
}

func (suite *RegistryAPITestSuite) TestListingRequiresOwnership() {
	suite.mint("SN-1", "PID-1")
	suite.claim(suite.aliceToken, "SN-1")

	w := suite.request("POST", "/v1/products/1/listing", suite.bobToken, map[string]interface{}{
		"price": 100,
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "NOT_OWNER", suite.errorCode(w))
}

func (suite *RegistryAPITestSuite) TestPurchaseLifecycle() {
	suite.mint("SN-1", "PID-1")
	suite.claim(suite.aliceToken, "SN-1")

	w := suite.request("POST", "/v1/products/1/listing", suite.aliceToken, map[string]interface{}{
		"price": 100,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// Broke buyer: the ledger rejects the transfer and nothing changes.
	w = suite.request("POST", "/v1/products/1/buy", suite.bobToken, map[string]interface{}{
		"payment_amount": 100,
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
	assert.Equal(suite.T(), "VALUE_TRANSFER_FAILED", suite.errorCode(w))

	suite.deposit(suite.bobToken, 100)

	// Wrong amount is rejected before any value moves.
	w = suite.request("POST", "/v1/products/1/buy", suite.bobToken, map[string]interface{}{
		"payment_amount": 50,
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
	assert.Equal(suite.T(), "WRONG_PAYMENT_AMOUNT", suite.errorCode(w))

	// Sellers cannot buy their own listing.
	w = suite.request("POST", "/v1/products/1/buy", suite.aliceToken, map[string]interface{}{
		"payment_amount": 100,
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
	assert.Equal(suite.T(), "BUYER_IS_OWNER", suite.errorCode(w))

	w = suite.request("POST", "/v1/products/1/buy", suite.bobToken, map[string]interface{}{
		"payment_amount": 100,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	data := suite.decode(w)["data"].(map[string]interface{})
	assert.Equal(suite.T(), suite.bobAddress, data["owner"])
	assert.Equal(suite.T(), false, data["is_for_sale"])

	assert.Equal(suite.T(), uint64(100), suite.ledger.BalanceOf(registry.Address(suite.aliceAddress)))
	assert.Equal(suite.T(), uint64(0), suite.ledger.BalanceOf(registry.Address(suite.bobAddress)))
}

func (suite *RegistryAPITestSuite) TestCollectionReorderOnSale() {
	for n := 1; n <= 3; n++ {
		suite.mint(fmt.Sprintf("SN-%d", n), fmt.Sprintf("PID-%d", n))
		suite.claim(suite.aliceToken, fmt.Sprintf("SN-%d", n))
	}

	w := suite.request("POST", "/v1/products/2/listing", suite.aliceToken, map[string]interface{}{
		"price": 100,
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	suite.deposit(suite.bobToken, 100)
	w = suite.request("POST", "/v1/products/2/buy", suite.bobToken, map[string]interface{}{
		"payment_amount": 100,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request("GET", "/v1/accounts/"+suite.aliceAddress+"/products", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	collection := suite.decode(w)["data"].([]interface{})
	suite.Require().Len(collection, 2)
	assert.Equal(suite.T(), float64(1), collection[0].(map[string]interface{})["token_id"])
	assert.Equal(suite.T(), float64(3), collection[1].(map[string]interface{})["token_id"])
}

func (suite *RegistryAPITestSuite) TestDirectTransferClearsListing() {
	suite.mint("SN-1", "PID-1")
	suite.claim(suite.aliceToken, "SN-1")

	w := suite.request("POST", "/v1/products/1/listing", suite.aliceToken, map[string]interface{}{
		"price": 100,
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request("POST", "/v1/products/1/transfer", suite.aliceToken, map[string]interface{}{
		"to": suite.bobAddress,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request("GET", "/v1/products/PID-1", "", nil)
	data := suite.decode(w)["data"].(map[string]interface{})
	assert.Equal(suite.T(), suite.bobAddress, data["owner"])
	assert.Equal(suite.T(), false, data["is_for_sale"])
	assert.Equal(suite.T(), float64(0), data["price"])
}

func (suite *RegistryAPITestSuite) TestProductLabel() {
	suite.mint("SN-1", "PID-1")

	w := suite.request("GET", "/v1/products/PID-1/label", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), "image/png", w.Header().Get("Content-Type"))
	assert.Equal(suite.T(), "\x89PNG", string(w.Body.Bytes()[:4]))
}

func (suite *RegistryAPITestSuite) TestOwnerCollectionIsEmptyNotMissing() {
	w := suite.request("GET", "/v1/accounts/"+suite.aliceAddress+"/products", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	collection, ok := suite.decode(w)["data"].([]interface{})
	suite.Require().True(ok)
	assert.Empty(suite.T(), collection)
}

func (suite *RegistryAPITestSuite) TestWalletBalance() {
	suite.deposit(suite.aliceToken, 250)

	w := suite.request("GET", "/v1/wallet/balance", suite.aliceToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	data := suite.decode(w)["data"].(map[string]interface{})
	assert.Equal(suite.T(), float64(250), data["balance"])
}

func TestRegistryAPISuite(t *testing.T) {
	suite.Run(t, new(RegistryAPITestSuite))
}
