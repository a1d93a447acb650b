package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskflow/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create adds a new task at the end of its board+status column.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last model.Task
		err := tx.Where("board_id = ? AND status = ?", task.BoardID, task.Status).
			Order("position DESC").
			First(&last).Error
		switch {
		case err == nil:
			task.Position = last.Position + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
			task.Position = 0
		default:
			return err
		}
		return tx.Create(task).Error
	})
}

// GetByID retrieves a task by its ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// GetByBoardID retrieves all tasks on a board ordered by status column and position.
func (r *TaskRepository) GetByBoardID(ctx context.Context, boardID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("status").
		Order("position").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// GetBoardTasksGroupedByStatus returns the board's tasks as one ordered
// slice per status column.
func (r *TaskRepository) GetBoardTasksGroupedByStatus(ctx context.Context, boardID uuid.UUID) (map[string][]model.Task, error) {
	tasks, err := r.GetByBoardID(ctx, boardID)
	if err != nil {
		return nil, err
	}

	grouped := map[string][]model.Task{
		model.StatusTodo:       {},
		model.StatusInProgress: {},
		model.StatusDone:       {},
	}
	for _, task := range tasks {
		grouped[task.Status] = append(grouped[task.Status], task)
	}
	return grouped, nil
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	result := r.db.WithContext(ctx).Save(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task and closes the gap it leaves in its column.
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		if err := tx.Delete(&model.Task{}, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Comment{}, "task_id = ?", id).Error; err != nil {
			return err
		}

		return tx.Model(&model.Task{}).
			Where("board_id = ? AND status = ? AND position > ?", task.BoardID, task.Status, task.Position).
			Update("position", gorm.Expr("position - 1")).Error
	})
}

// AddComment appends a comment to a task.
func (r *TaskRepository) AddComment(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Task{}).Where("id = ?", comment.TaskID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrTaskNotFound
		}
		return tx.Create(comment).Error
	})
}

// GetComments returns a task's comments oldest first.
func (r *TaskRepository) GetComments(ctx context.Context, taskID uuid.UUID) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at").
		Find(&comments).Error
	return comments, err
}

// UpdateTaskPosition moves a task to newStatus at newPosition and renumbers
// both affected columns so positions stay dense and unique. The task row is
// locked for the duration of the transaction, so concurrent moves into the
// same column serialize rather than writing duplicate positions.
func (r *TaskRepository) UpdateTaskPosition(ctx context.Context, taskID uuid.UUID, newStatus string, newPosition int) (*model.Task, error) {
	var task model.Task

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// sqlite serializes writers on its own and rejects FOR UPDATE.
		fetch := tx
		if tx.Dialector.Name() == "postgres" {
			fetch = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := fetch.First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		oldStatus := task.Status
		oldPosition := task.Position

		// Clamp the requested slot to the destination column's bounds.
		var destCount int64
		if err := tx.Model(&model.Task{}).
			Where("board_id = ? AND status = ?", task.BoardID, newStatus).
			Count(&destCount).Error; err != nil {
			return err
		}
		maxPosition := int(destCount)
		if oldStatus == newStatus {
			maxPosition-- // the task itself is already in the column
		}
		if newPosition > maxPosition {
			newPosition = maxPosition
		}
		if newPosition < 0 {
			newPosition = 0
		}

		if oldStatus != newStatus {
			// Close the gap in the old column.
			if err := tx.Model(&model.Task{}).
				Where("board_id = ? AND status = ? AND position > ?", task.BoardID, oldStatus, oldPosition).
				Update("position", gorm.Expr("position - 1")).Error; err != nil {
				return err
			}

			// Make room in the new column.
			if err := tx.Model(&model.Task{}).
				Where("board_id = ? AND status = ? AND position >= ?", task.BoardID, newStatus, newPosition).
				Update("position", gorm.Expr("position + 1")).Error; err != nil {
				return err
			}

			task.Status = newStatus
			task.Position = newPosition
		} else if oldPosition != newPosition {
			if oldPosition < newPosition {
				// Moving down: pull up everything between old and new.
				if err := tx.Model(&model.Task{}).
					Where("board_id = ? AND status = ? AND position > ? AND position <= ?", task.BoardID, newStatus, oldPosition, newPosition).
					Update("position", gorm.Expr("position - 1")).Error; err != nil {
					return err
				}
			} else {
				// Moving up: push down everything between new and old.
				if err := tx.Model(&model.Task{}).
					Where("board_id = ? AND status = ? AND position >= ? AND position < ?", task.BoardID, newStatus, newPosition, oldPosition).
					Update("position", gorm.Expr("position + 1")).Error; err != nil {
					return err
				}
			}

			task.Position = newPosition
		}

		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// AssignUser assigns a user to a task
func (r *TaskRepository) AssignUser(ctx context.Context, taskID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		Update("assigned_to", userID)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// UnassignUser removes user assignment from a task
func (r *TaskRepository) UnassignUser(ctx context.Context, taskID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		Update("assigned_to", nil)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
