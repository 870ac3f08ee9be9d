package command

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
)

// Message field names.
const (
	fieldAction           = "action"
	fieldShopID           = "shopId"
	fieldSuccess          = "success"
	fieldError            = "error"
	fieldStatus           = "status"
	fieldActive           = "active"
	fieldObservedCount    = "observedCount"
	fieldIsLooping        = "isLooping"
	fieldUserAcknowledged = "userAcknowledged"
	fieldLastAlertAt      = "lastAlertAt"
)

var (
	// errNilMessage is returned when a nil message is decoded.
	errNilMessage = errors.New("message is required")
	// errBadField is returned when a field has the wrong type.
	errBadField = errors.New("bad field")
)

// EncodeRequest converts a domain request to a message.
func EncodeRequest(req domain.Request) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldAction: structpb.NewStringValue(string(req.Action)),
	}

	if req.ShopID != "" {
		fields[fieldShopID] = structpb.NewStringValue(req.ShopID)
	}

	return &structpb.Struct{Fields: fields}
}

// DecodeRequest converts a message to a domain request.
// A missing action decodes as empty and is rejected by the handler as unknown.
func DecodeRequest(msg *structpb.Struct) (domain.Request, error) {
	if msg == nil {
		return domain.Request{}, errNilMessage
	}

	action, err := stringField(msg, fieldAction)
	if err != nil {
		return domain.Request{}, err
	}

	shopID, err := stringField(msg, fieldShopID)
	if err != nil {
		return domain.Request{}, err
	}

	return domain.Request{
		Action: domain.Action(action),
		ShopID: shopID,
	}, nil
}

// EncodeResponse converts a domain response to a message.
func EncodeResponse(resp domain.Response) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		fieldSuccess: structpb.NewBoolValue(resp.Success),
	}

	if resp.Error != "" {
		fields[fieldError] = structpb.NewStringValue(resp.Error)
	}

	if resp.Status != nil {
		status, err := encodeStatus(resp.Status)
		if err != nil {
			return nil, err
		}

		fields[fieldStatus] = structpb.NewStructValue(status)
	}

	return &structpb.Struct{Fields: fields}, nil
}

// DecodeResponse converts a message to a domain response.
func DecodeResponse(msg *structpb.Struct) (domain.Response, error) {
	if msg == nil {
		return domain.Response{}, errNilMessage
	}

	fields := msg.GetFields()

	resp := domain.Response{
		Success: fields[fieldSuccess].GetBoolValue(),
	}

	var err error
	if resp.Error, err = stringField(msg, fieldError); err != nil {
		return domain.Response{}, err
	}

	if v, ok := fields[fieldStatus]; ok {
		if resp.Status, err = decodeStatus(v.GetStructValue()); err != nil {
			return domain.Response{}, err
		}
	}

	return resp, nil
}

// encodeStatus converts a status. LastAlertAt uses the protobuf Timestamp JSON form and is omitted when zero.
func encodeStatus(status *domain.Status) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		fieldShopID:           structpb.NewStringValue(status.ShopID),
		fieldActive:           structpb.NewBoolValue(status.Active),
		fieldObservedCount:    structpb.NewNumberValue(float64(status.ObservedCount)),
		fieldIsLooping:        structpb.NewBoolValue(status.IsLooping),
		fieldUserAcknowledged: structpb.NewBoolValue(status.UserAcknowledged),
	}

	if !status.LastAlertAt.IsZero() {
		ts, err := timestampValue(status.LastAlertAt)
		if err != nil {
			return nil, err
		}

		fields[fieldLastAlertAt] = ts
	}

	return &structpb.Struct{Fields: fields}, nil
}

// decodeStatus converts a status message.
func decodeStatus(msg *structpb.Struct) (*domain.Status, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: %s", errBadField, fieldStatus)
	}

	fields := msg.GetFields()

	status := &domain.Status{
		ShopID:           fields[fieldShopID].GetStringValue(),
		Active:           fields[fieldActive].GetBoolValue(),
		ObservedCount:    int(fields[fieldObservedCount].GetNumberValue()),
		IsLooping:        fields[fieldIsLooping].GetBoolValue(),
		UserAcknowledged: fields[fieldUserAcknowledged].GetBoolValue(),
	}

	if v, ok := fields[fieldLastAlertAt]; ok {
		at, err := valueTimestamp(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errBadField, fieldLastAlertAt, err)
		}

		status.LastAlertAt = at
	}

	return status, nil
}

// stringField returns a string field, or empty when it is absent or null.
func stringField(msg *structpb.Struct, name string) (string, error) {
	v, ok := msg.GetFields()[name]
	if !ok {
		return "", nil
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s must be a string", errBadField, name)
	}
}

// timestampValue renders t the way protojson renders google.protobuf.Timestamp.
func timestampValue(t time.Time) (*structpb.Value, error) {
	raw, err := protojson.Marshal(timestamppb.New(t))
	if err != nil {
		return nil, fmt.Errorf("marshal timestamp: %w", err)
	}

	v := new(structpb.Value)
	if err = protojson.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("unmarshal timestamp value: %w", err)
	}

	return v, nil
}

// valueTimestamp parses a value produced by timestampValue.
func valueTimestamp(v *structpb.Value) (time.Time, error) {
	raw, err := protojson.Marshal(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal timestamp value: %w", err)
	}

	ts := new(timestamppb.Timestamp)
	if err = protojson.Unmarshal(raw, ts); err != nil {
		return time.Time{}, fmt.Errorf("unmarshal timestamp: %w", err)
	}

	return ts.AsTime(), nil
}
