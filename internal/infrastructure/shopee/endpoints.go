package shopee

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Cache TTLs per endpoint volatility class. Metadata barely moves,
// order data churns constantly.
const (
	ttlShopInfo    = time.Hour
	ttlItemList    = 5 * time.Minute
	ttlItemDetail  = 10 * time.Minute
	ttlOrderList   = time.Minute
	ttlOrderDetail = 2 * time.Minute
)

const (
	pathShopInfo      = "/api/v2/shop/get_shop_info"
	pathItemList      = "/api/v2/product/get_item_list"
	pathItemBaseInfo  = "/api/v2/product/get_item_base_info"
	pathUpdateStock   = "/api/v2/product/update_stock"
	pathUpdatePrice   = "/api/v2/product/update_price"
	pathOrderList     = "/api/v2/order/get_order_list"
	pathOrderDetail   = "/api/v2/order/get_order_detail"
	pathUploadImage   = "/api/v2/media_space/upload_image"
	productPathPrefix = "/api/v2/product/"
)

// GetShopInfo returns the shop profile.
func (c *Client) GetShopInfo(ctx context.Context, shopID int64) (json.RawMessage, error) {
	return c.Get(ctx, shopID, pathShopInfo, nil, ttlShopInfo)
}

// GetItemList returns a page of item ids for the shop.
func (c *Client) GetItemList(ctx context.Context, shopID int64, offset, pageSize int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("item_status", "NORMAL")
	return c.Get(ctx, shopID, pathItemList, params, ttlItemList)
}

// GetItemBaseInfo returns base details for up to 50 items.
func (c *Client) GetItemBaseInfo(ctx context.Context, shopID int64, itemIDs []int64) (json.RawMessage, error) {
	if len(itemIDs) == 0 || len(itemIDs) > 50 {
		return nil, fmt.Errorf("item_id_list must contain 1 to 50 ids, got %d", len(itemIDs))
	}
	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	params := url.Values{}
	params.Set("item_id_list", strings.Join(ids, ","))
	return c.Get(ctx, shopID, pathItemBaseInfo, params, ttlItemDetail)
}

// GetOrderList returns orders in a creation time window.
func (c *Client) GetOrderList(ctx context.Context, shopID int64, from, to time.Time, pageSize int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("time_range_field", "create_time")
	params.Set("time_from", strconv.FormatInt(from.Unix(), 10))
	params.Set("time_to", strconv.FormatInt(to.Unix(), 10))
	params.Set("page_size", strconv.Itoa(pageSize))
	return c.Get(ctx, shopID, pathOrderList, params, ttlOrderList)
}

// GetOrderDetail returns details for the given order serial numbers.
func (c *Client) GetOrderDetail(ctx context.Context, shopID int64, orderSNs []string) (json.RawMessage, error) {
	if len(orderSNs) == 0 {
		return nil, fmt.Errorf("order_sn_list must not be empty")
	}
	params := url.Values{}
	params.Set("order_sn_list", strings.Join(orderSNs, ","))
	return c.Get(ctx, shopID, pathOrderDetail, params, ttlOrderDetail)
}

// UpdateStock updates the stock of an item and invalidates every
// cached product read for the shop.
func (c *Client) UpdateStock(ctx context.Context, shopID int64, itemID int64, stock int) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"item_id": itemID,
		"stock_list": []map[string]interface{}{
			{"seller_stock": []map[string]int{{"stock": stock}}},
		},
	}
	return c.Post(ctx, shopID, pathUpdateStock, payload, productPathPrefix)
}

// UpdatePrice updates the price of an item and invalidates every
// cached product read for the shop.
func (c *Client) UpdatePrice(ctx context.Context, shopID int64, itemID int64, price float64) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"item_id": itemID,
		"price_list": []map[string]interface{}{
			{"original_price": price},
		},
	}
	return c.Post(ctx, shopID, pathUpdatePrice, payload, productPathPrefix)
}

// UploadImage uploads an image through the restrictive media bucket.
// The image is sent base64-encoded in the JSON body.
func (c *Client) UploadImage(ctx context.Context, shopID int64, imageBase64 string) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"image": imageBase64,
	}
	return c.Post(ctx, shopID, pathUploadImage, payload)
}

