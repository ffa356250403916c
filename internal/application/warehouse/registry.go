package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/taller-core/internal/application/dto"
	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
	"github.com/jhoicas/taller-core/pkg/logger"
)

// Config parámetros del registro de depósitos.
type Config struct {
	Now func() time.Time // reloj; nil = time.Now
}

// Registry casos de uso de depósitos. A lo sumo uno es principal.
type Registry struct {
	txRunner repository.TxRunner
	reader   repository.Store
	cfg      Config
	log      *logger.Logger
}

// NewRegistry construye el registro de depósitos.
func NewRegistry(txRunner repository.TxRunner, reader repository.Store, cfg Config, log *logger.Logger) *Registry {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{txRunner: txRunner, reader: reader, cfg: cfg, log: log.Component("warehouses")}
}

// Create crea un depósito. Si se marca como principal, el anterior deja de serlo en la misma transacción.
func (r *Registry) Create(ctx context.Context, in dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: el nombre del depósito es obligatorio", domain.ErrInvalidInput)
	}
	now := r.cfg.Now()
	w := &entity.Warehouse{
		ID:        uuid.New().String(),
		Name:      name,
		Address:   strings.TrimSpace(in.Address),
		Principal: in.Principal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		if w.Principal {
			if err := s.Warehouses().ClearPrincipal(ctx); err != nil {
				return err
			}
		}
		return s.Warehouses().Create(ctx, w)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, fmt.Errorf("%w: ya existe un depósito %q", domain.ErrDuplicate, name)
		}
		return nil, err
	}
	r.log.Info().Str("warehouse_id", w.ID).Str("name", w.Name).Bool("principal", w.Principal).Msg("depósito creado")
	return toWarehouseResponse(w), nil
}

// GetByID obtiene un depósito por ID.
func (r *Registry) GetByID(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	w, err := r.reader.Warehouses().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: depósito %s", domain.ErrNotFound, id)
	}
	return toWarehouseResponse(w), nil
}

// Update actualiza nombre y dirección.
func (r *Registry) Update(ctx context.Context, id string, in dto.UpdateWarehouseRequest) (*dto.WarehouseResponse, error) {
	var out *entity.Warehouse
	err := r.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		w, err := s.Warehouses().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return fmt.Errorf("%w: depósito %s", domain.ErrNotFound, id)
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return fmt.Errorf("%w: el nombre del depósito es obligatorio", domain.ErrInvalidInput)
			}
			w.Name = name
		}
		if in.Address != nil {
			w.Address = strings.TrimSpace(*in.Address)
		}
		w.UpdatedAt = r.cfg.Now()
		out = w
		return s.Warehouses().Update(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	return toWarehouseResponse(out), nil
}

// List lista depósitos por nombre con paginación.
func (r *Registry) List(ctx context.Context, page dto.PageRequest) (*dto.WarehouseListResponse, error) {
	page.DefaultPage()
	list, err := r.reader.Warehouses().List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.WarehouseResponse, 0, len(list))
	for _, w := range list {
		items = append(items, *toWarehouseResponse(w))
	}
	return &dto.WarehouseListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// Principal devuelve el depósito principal.
func (r *Registry) Principal(ctx context.Context) (*dto.WarehouseResponse, error) {
	w, err := r.reader.Warehouses().GetPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: no hay depósito principal", domain.ErrNotFound)
	}
	return toWarehouseResponse(w), nil
}

// SetPrincipal marca id como principal y desmarca el anterior.
func (r *Registry) SetPrincipal(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	var out *entity.Warehouse
	err := r.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		w, err := s.Warehouses().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return fmt.Errorf("%w: depósito %s", domain.ErrNotFound, id)
		}
		if err := s.Warehouses().ClearPrincipal(ctx); err != nil {
			return err
		}
		w.Principal = true
		w.UpdatedAt = r.cfg.Now()
		out = w
		return s.Warehouses().Update(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("warehouse_id", id).Msg("depósito principal cambiado")
	return toWarehouseResponse(out), nil
}

// ResolveInTx devuelve el depósito indicado o, si id está vacío, el principal.
func ResolveInTx(ctx context.Context, s repository.Store, id string) (*entity.Warehouse, error) {
	var (
		w   *entity.Warehouse
		err error
	)
	if id == "" {
		w, err = s.Warehouses().GetPrincipal(ctx)
	} else {
		w, err = s.Warehouses().GetByID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("buscar depósito: %w", err)
	}
	if w == nil {
		if id == "" {
			return nil, fmt.Errorf("%w: no hay depósito principal", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: depósito %s", domain.ErrNotFound, id)
	}
	return w, nil
}

func toWarehouseResponse(w *entity.Warehouse) *dto.WarehouseResponse {
	if w == nil {
		return nil
	}
	return &dto.WarehouseResponse{
		ID:        w.ID,
		Name:      w.Name,
		Address:   w.Address,
		Principal: w.Principal,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
