package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	appErrors "github.com/evoflow/backend/internal/errors"
	"github.com/evoflow/backend/internal/model"
)

type FlowRepositoryInterface interface {
	Create(f *model.Flow) error
	Update(f *model.Flow) error
	GetByID(id string) (*model.Flow, error)
	List() ([]model.Flow, error)
	Delete(id string) error
}

// FlowRepository stores flow graphs as JSONB documents.
type FlowRepository struct {
	DB *sql.DB
}

// graphDoc is the JSONB column payload.
type graphDoc struct {
	Nodes []model.FlowNode `json:"nodes"`
	Edges []model.FlowEdge `json:"edges"`
}

func (r *FlowRepository) Create(f *model.Flow) error {
	f.CreatedAt = time.Now()
	graph, err := json.Marshal(graphDoc{Nodes: f.Nodes, Edges: f.Edges})
	if err != nil {
		return err
	}

	query := `
        INSERT INTO flows (id, name, instance, graph, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err = r.DB.Exec(query, f.ID, f.Name, f.Instance, graph, f.CreatedAt)
	return err
}

func (r *FlowRepository) Update(f *model.Flow) error {
	graph, err := json.Marshal(graphDoc{Nodes: f.Nodes, Edges: f.Edges})
	if err != nil {
		return err
	}

	query := `UPDATE flows SET name=$1, instance=$2, graph=$3, updated_at=NOW() WHERE id=$4`
	_, err = r.DB.Exec(query, f.Name, f.Instance, graph, f.ID)
	return err
}

func (r *FlowRepository) GetByID(id string) (*model.Flow, error) {
	query := `SELECT id, name, instance, graph, created_at, updated_at FROM flows WHERE id=$1`

	var f model.Flow
	var graph []byte
	err := r.DB.QueryRow(query, id).Scan(&f.ID, &f.Name, &f.Instance, &graph, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewFlowNotFound(id)
		}
		return nil, err
	}

	var doc graphDoc
	if err := json.Unmarshal(graph, &doc); err != nil {
		return nil, err
	}
	f.Nodes = doc.Nodes
	f.Edges = doc.Edges
	return &f, nil
}

func (r *FlowRepository) List() ([]model.Flow, error) {
	query := `SELECT id, name, instance, graph, created_at, updated_at FROM flows ORDER BY created_at`

	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flows := []model.Flow{}
	for rows.Next() {
		var f model.Flow
		var graph []byte
		if err := rows.Scan(&f.ID, &f.Name, &f.Instance, &graph, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		var doc graphDoc
		if err := json.Unmarshal(graph, &doc); err != nil {
			return nil, err
		}
		f.Nodes = doc.Nodes
		f.Edges = doc.Edges
		flows = append(flows, f)
	}
	return flows, nil
}

func (r *FlowRepository) Delete(id string) error {
	_, err := r.DB.Exec(`DELETE FROM flows WHERE id=$1`, id)
	return err
}

var _ FlowRepositoryInterface = (*FlowRepository)(nil)
