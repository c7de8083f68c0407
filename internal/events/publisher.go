// Package events 经 Redis 发布订单生命周期事件
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/petertoman80/trade-frame/internal/order"
)

const orderEventChannelTemplate = "orders:{symbol}:events"

// Publisher 把订单事件发布到按合约分片的 Redis 频道
type Publisher struct {
	client        *redis.Client
	channelFormat string
	hasSymbol     bool
}

// NewPublisher 创建发布器。channel 为空时使用默认模板。
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = orderEventChannelTemplate
	}
	format, hasSymbol := normalizeChannelFormat(channel)
	return &Publisher{
		client:        client,
		channelFormat: format,
		hasSymbol:     hasSymbol,
	}
}

// PublishOrderEvent 发布订单事件快照。
// event 为生命周期标识：created、placed、execution、filled、cancelled、error。
func (p *Publisher) PublishOrderEvent(ctx context.Context, event string, o *order.Order) error {
	payload := map[string]interface{}{
		"channel": "order",
		"event":   event,
		"data":    snapshot(o),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	target := p.channelFormat
	if p.hasSymbol {
		symbol := o.InstrumentID
		if o.Instrument != nil {
			symbol = o.Instrument.Symbol
		}
		target = fmt.Sprintf(p.channelFormat, symbol)
	}
	return p.client.Publish(ctx, target, raw).Err()
}

// snapshot 事件载荷里的订单快照；decimal 以字符串输出避免精度损失
func snapshot(o *order.Order) map[string]interface{} {
	return map[string]interface{}{
		"orderId":           o.OrderID,
		"instrumentId":      o.InstrumentID,
		"positionId":        o.PositionID,
		"type":              int(o.Type),
		"side":              int(o.Side),
		"status":            o.Status.String(),
		"quantity":          o.Quantity,
		"quantityFilled":    o.QuantityFilled,
		"quantityRemaining": o.QuantityRemaining,
		"averageFillPrice":  o.AverageFillPrice.String(),
		"commission":        o.Commission.String(),
	}
}

func normalizeChannelFormat(template string) (string, bool) {
	if strings.Contains(template, "{symbol}") {
		return strings.ReplaceAll(template, "{symbol}", "%s"), true
	}
	return template, false
}
