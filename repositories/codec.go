package repositories

import (
	"chat-relay/domain"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored in the protobuf wire format so that fields can be
// added later without rewriting existing values. Field numbers must never
// be reused.
const (
	messageIDField        protowire.Number = 1
	messageSenderField    protowire.Number = 2
	messageReceiverField  protowire.Number = 3
	messageContentField   protowire.Number = 4
	messageTypeField      protowire.Number = 5
	messageCreatedAtField protowire.Number = 6
	userIDField           protowire.Number = 1
	userNameField         protowire.Number = 2
	userEmailField        protowire.Number = 3
	userImageField        protowire.Number = 4
	userPasswordHashField protowire.Number = 5
	userRolesField        protowire.Number = 6
	userCreatedAtField    protowire.Number = 7
)

func marshalMessage(m domain.Message) []byte {
	var b []byte
	b = appendString(b, messageIDField, m.ID.String())
	b = appendString(b, messageSenderField, m.SenderID)
	b = appendString(b, messageReceiverField, m.ReceiverID)
	b = appendString(b, messageContentField, m.Content)
	b = appendString(b, messageTypeField, string(m.Type))
	b = protowire.AppendTag(b, messageCreatedAtField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.CreatedAt.UnixNano()))
	return b
}

func unmarshalMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	err := consumeFields(b, func(num protowire.Number, s string, v uint64) error {
		switch num {
		case messageIDField:
			id, err := uuid.Parse(s)
			if err != nil {
				return err
			}
			m.ID = id
		case messageSenderField:
			m.SenderID = s
		case messageReceiverField:
			m.ReceiverID = s
		case messageContentField:
			m.Content = s
		case messageTypeField:
			m.Type = domain.MessageType(s)
		case messageCreatedAtField:
			m.CreatedAt = time.Unix(0, int64(v)).UTC()
		}
		return nil
	})
	return m, err
}

func marshalUser(u User) []byte {
	var b []byte
	b = appendString(b, userIDField, u.ID)
	b = appendString(b, userNameField, u.Name)
	b = appendString(b, userEmailField, u.Email)
	b = appendString(b, userImageField, u.Image)
	b = appendString(b, userPasswordHashField, u.PasswordHash)
	for _, role := range u.Roles {
		b = appendString(b, userRolesField, role)
	}
	b = protowire.AppendTag(b, userCreatedAtField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(u.CreatedAt.Unix()))
	return b
}

func unmarshalUser(b []byte) (User, error) {
	var u User
	err := consumeFields(b, func(num protowire.Number, s string, v uint64) error {
		switch num {
		case userIDField:
			u.ID = s
		case userNameField:
			u.Name = s
		case userEmailField:
			u.Email = s
		case userImageField:
			u.Image = s
		case userPasswordHashField:
			u.PasswordHash = s
		case userRolesField:
			u.Roles = append(u.Roles, s)
		case userCreatedAtField:
			u.CreatedAt = time.Unix(int64(v), 0).UTC()
		}
		return nil
	})
	return u, err
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// consumeFields walks a record and hands each known field to fn.
// Unknown fields are skipped.
func consumeFields(b []byte, fn func(num protowire.Number, s string, v uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			if err := fn(num, s, 0); err != nil {
				return err
			}
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			if err := fn(num, "", v); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}
