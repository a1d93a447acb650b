package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/model"
)

type BoardShareRepository struct {
	db *gorm.DB
}

func NewBoardShareRepository(db *gorm.DB) *BoardShareRepository {
	return &BoardShareRepository{db: db}
}

// ShareBoard grants a user the given role on a board, upgrading an existing
// share in place.
func (r *BoardShareRepository) ShareBoard(ctx context.Context, boardID, userID uuid.UUID, role string) error {
	share := model.BoardShare{
		ID:      uuid.New(),
		BoardID: boardID,
		UserID:  userID,
		Role:    role,
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.BoardShare
		err := tx.Where("board_id = ? AND user_id = ?", boardID, userID).First(&existing).Error

		if err == nil {
			existing.Role = role
			return tx.Save(&existing).Error
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(&share).Error
	})
}

// RemoveShare revokes a user's access to a board.
func (r *BoardShareRepository) RemoveShare(ctx context.Context, boardID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("board_id = ? AND user_id = ?", boardID, userID).Delete(&model.BoardShare{}).Error
}

// GetSharedBoards returns boards the user has been granted access to.
func (r *BoardShareRepository) GetSharedBoards(ctx context.Context, userID uuid.UUID) ([]model.Board, error) {
	var boards []model.Board

	err := r.db.WithContext(ctx).
		Joins("JOIN board_shares ON board_shares.board_id = boards.id").
		Where("board_shares.user_id = ?", userID).
		Find(&boards).Error

	return boards, err
}

// BoardVisibleTo reports whether the user owns the board or holds any share
// on it.
func (r *BoardShareRepository) BoardVisibleTo(ctx context.Context, boardID, userID uuid.UUID) (bool, error) {
	var board model.Board
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", boardID, userID).
		First(&board).Error

	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	var share model.BoardShare
	err = r.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&share).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CheckAccess reports whether the user may act on the board with the
// required role or higher. The owner always has full access.
func (r *BoardShareRepository) CheckAccess(ctx context.Context, boardID, userID uuid.UUID, requiredRole string) (bool, error) {
	var board model.Board
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", boardID, userID).
		First(&board).Error

	if err == nil {
		return true, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	var share model.BoardShare
	err = r.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&share).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Any role satisfies a viewer requirement.
	if requiredRole == model.RoleViewer {
		return true, nil
	}

	return share.Role == model.RoleEditor, nil
}
