// dao/neo4j_participant_dao.go
package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	meet_errors "github.com/trackmeet/api/errors"
	logger "github.com/trackmeet/api/logging"
	"github.com/trackmeet/api/model"
)

type Neo4jParticipantDAO struct {
	Driver neo4j.Driver
}

var _ ParticipantDAO = (*Neo4jParticipantDAO)(nil)

func NewNeo4jParticipantDAO(driver neo4j.Driver) *Neo4jParticipantDAO {
	dao := &Neo4jParticipantDAO{Driver: driver}
	// Ensure unique constraint on Participant ID
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for Participant", zap.Error(err))
	}
	return dao
}

func (dao *Neo4jParticipantDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on Participant ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_participant_id IF NOT EXISTS
        FOR (p:Participant) REQUIRE p.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on Participant ID", zap.Error(err))
		return err
	}

	return nil
}

func (dao *Neo4jParticipantDAO) CreateParticipant(ctx context.Context, input model.NewParticipant) (*model.Participant, error) {
	start := time.Now()
	logger.Info("Creating new participant", zap.String("email", input.Email))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	now := time.Now()
	participant := model.Participant{
		ID:        uuid.New().String(), // caller-supplied ids are never honored
		Name:      input.Name,
		Email:     input.Email,
		Team:      input.Team,
		Division:  input.Division,
		Status:    model.DefaultParticipantStatus,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE (p:Participant {id: $id})
        SET p += $props
        RETURN p.id as id
        `

		result, err := transaction.Run(query, map[string]interface{}{
			"id":    participant.ID,
			"props": participantProps(&participant),
		})
		if err != nil {
			return nil, meet_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0], nil
		}

		return nil, meet_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to create participant",
			zap.Error(err),
			zap.String("email", input.Email),
			zap.Duration("duration", duration))
		return nil, err
	}

	logger.Info("Participant created successfully",
		zap.String("participantID", participant.ID),
		zap.Duration("duration", duration))

	return &participant, nil
}

func (dao *Neo4jParticipantDAO) GetParticipant(ctx context.Context, participantID string) (*model.Participant, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:Participant {id: $id})
        RETURN p
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": participantID})
		if err != nil {
			return nil, meet_errors.ErrDatabaseOperation
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return parseParticipantNode(node.Props)
		}

		return nil, meet_errors.ErrParticipantNotFound
	})

	if err != nil {
		return nil, err
	}

	return result.(*model.Participant), nil
}

func (dao *Neo4jParticipantDAO) GetParticipantByEmail(ctx context.Context, email string) (*model.Participant, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:Participant {email: $email})
        RETURN p
        `
		result, err := transaction.Run(query, map[string]interface{}{"email": email})
		if err != nil {
			return nil, meet_errors.ErrDatabaseOperation
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return parseParticipantNode(node.Props)
		}

		return nil, meet_errors.ErrParticipantNotFound
	})

	if err != nil {
		return nil, err
	}

	return result.(*model.Participant), nil
}

func (dao *Neo4jParticipantDAO) ListParticipants(ctx context.Context, page, limit int) (*model.ParticipantPage, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	offset := (page - 1) * limit

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		countResult, err := transaction.Run(`MATCH (p:Participant) RETURN count(p) as total`, nil)
		if err != nil {
			return nil, meet_errors.ErrDatabaseOperation
		}
		var total int64
		if countResult.Next() {
			total = countResult.Record().Values[0].(int64)
		}

		query := `
        MATCH (p:Participant)
        RETURN p
        ORDER BY p.createdAt, p.id
        SKIP $offset LIMIT $limit
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"offset": offset,
			"limit":  limit,
		})
		if err != nil {
			return nil, meet_errors.ErrDatabaseOperation
		}

		participants := []*model.Participant{}
		for result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			p, err := parseParticipantNode(node.Props)
			if err != nil {
				return nil, err
			}
			participants = append(participants, p)
		}

		return &model.ParticipantPage{
			Data: participants,
			Pagination: model.Pagination{
				Page:       page,
				Limit:      limit,
				Total:      int(total),
				TotalPages: (int(total) + limit - 1) / limit,
			},
		}, nil
	})

	if err != nil {
		logger.Error("Failed to list participants", zap.Error(err), zap.Int("page", page), zap.Int("limit", limit))
		return nil, err
	}

	return result.(*model.ParticipantPage), nil
}

func (dao *Neo4jParticipantDAO) UpdateParticipant(ctx context.Context, participantID string, patch model.ParticipantPatch) (*model.Participant, error) {
	start := time.Now()
	logger.Info("Updating participant", zap.String("participantID", participantID))

	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	// Only the fields the patch names are written; the single SET is the
	// store's atomic-update primitive, last write wins.
	props := map[string]interface{}{
		"updatedAt": time.Now().Format(time.RFC3339Nano),
	}
	if patch.Name != nil {
		props["name"] = *patch.Name
	}
	if patch.Email != nil {
		props["email"] = *patch.Email
	}
	if patch.Team != nil {
		props["team"] = *patch.Team
	}
	if patch.Division != nil {
		props["division"] = *patch.Division
	}
	if patch.Status != nil {
		props["status"] = *patch.Status
	}

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:Participant {id: $id})
        SET p += $props
        RETURN p
        `
		result, err := transaction.Run(query, map[string]interface{}{
			"id":    participantID,
			"props": props,
		})
		if err != nil {
			return nil, meet_errors.ErrDatabaseOperation
		}

		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return parseParticipantNode(node.Props)
		}

		return nil, meet_errors.ErrParticipantNotFound
	})

	duration := time.Since(start)
	if err != nil {
		if err != meet_errors.ErrParticipantNotFound {
			logger.Error("Failed to update participant",
				zap.Error(err),
				zap.String("participantID", participantID),
				zap.Duration("duration", duration))
		}
		return nil, err
	}

	logger.Info("Participant updated successfully",
		zap.String("participantID", participantID),
		zap.Duration("duration", duration))

	return result.(*model.Participant), nil
}

func (dao *Neo4jParticipantDAO) DeleteParticipant(ctx context.Context, participantID string) (bool, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	result, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (p:Participant {id: $id})
        DETACH DELETE p
        RETURN count(p) as deleted
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": participantID})
		if err != nil {
			return nil, meet_errors.ErrDatabaseOperation
		}

		if result.Next() {
			return result.Record().Values[0].(int64) > 0, nil
		}

		return false, nil
	})

	if err != nil {
		logger.Error("Failed to delete participant", zap.Error(err), zap.String("participantID", participantID))
		return false, err
	}

	deleted := result.(bool)
	logger.Info("Participant delete finished",
		zap.String("participantID", participantID),
		zap.Bool("deleted", deleted))
	return deleted, nil
}

// participantProps flattens a participant into node properties.
func participantProps(p *model.Participant) map[string]interface{} {
	return map[string]interface{}{
		"name":      p.Name,
		"email":     p.Email,
		"team":      p.Team,
		"division":  p.Division,
		"status":    p.Status,
		"createdAt": p.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt": p.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// parseParticipantNode maps node properties back to the model.
func parseParticipantNode(props map[string]interface{}) (*model.Participant, error) {
	p := &model.Participant{}

	var ok bool
	if p.ID, ok = props["id"].(string); !ok {
		return nil, fmt.Errorf("participant node missing id: %w", meet_errors.ErrInternalServer)
	}
	p.Name, _ = props["name"].(string)
	p.Email, _ = props["email"].(string)
	p.Team, _ = props["team"].(string)
	p.Division, _ = props["division"].(string)
	p.Status, _ = props["status"].(string)

	if raw, ok := props["createdAt"].(string); ok {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("participant node has bad createdAt: %w", err)
		}
		p.CreatedAt = t
	}
	if raw, ok := props["updatedAt"].(string); ok {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("participant node has bad updatedAt: %w", err)
		}
		p.UpdatedAt = t
	}

	return p, nil
}
