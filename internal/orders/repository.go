package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/internal/repository"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/metadata"
	"github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/models"
	custom_error "github.com/hassanfarrukh/vuteq-toyota-shipment-scanner-sub002/pkg/errors"
)

var orderColumns = []interface{}{
	"id", "order_number", "dock_code", "supplier_code", "plant_code", "route_number",
	"pickup_at", "status", "skid_build_confirmation", "shipment_confirmation",
	"created_at", "updated_at",
}

func selectOrders(exec repository.Executor, forUpdate bool) *goqu.SelectDataset {
	ds := exec.From("orders").Select(orderColumns...)
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}
	return ds
}

// FindOrder loads one order, locking its row when forUpdate is set.
func FindOrder(ctx context.Context, exec repository.Executor, id int64, forUpdate bool) (*models.Order, error) {
	var order models.Order
	found, err := selectOrders(exec, forUpdate).
		Where(goqu.Ex{"id": id}).
		Executor().
		ScanStructContext(ctx, &order)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	if !found {
		return nil, &custom_error.NotFoundError{Resource: "order", ID: id}
	}

	return &order, nil
}

func FindOrderByNumber(ctx context.Context, exec repository.Executor, orderNumber, dockCode string) (*models.Order, error) {
	var order models.Order
	found, err := selectOrders(exec, false).
		Where(goqu.Ex{"order_number": orderNumber, "dock_code": dockCode}).
		Executor().
		ScanStructContext(ctx, &order)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s/%s: %w", orderNumber, dockCode, err)
	}
	if !found {
		return nil, &custom_error.NotFoundError{Resource: "order", ID: orderNumber + "/" + dockCode}
	}

	return &order, nil
}

// FindOrders returns the orders with the given ids ordered by id. Locking in
// id order keeps concurrent completions from deadlocking.
func FindOrders(ctx context.Context, exec repository.Executor, ids []int64, forUpdate bool) ([]models.Order, error) {
	if len(ids) == 0 {
		return []models.Order{}, nil
	}

	var orders []models.Order
	err := selectOrders(exec, forUpdate).
		Where(goqu.Ex{"id": ids}).
		Order(goqu.I("id").Asc()).
		Executor().
		ScanStructsContext(ctx, &orders)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}

	return orders, nil
}

func FindRouteOrders(ctx context.Context, exec repository.Executor, route string) ([]models.Order, error) {
	var orders []models.Order
	err := selectOrders(exec, false).
		Where(goqu.Ex{"route_number": route}).
		Order(goqu.I("id").Asc()).
		Executor().
		ScanStructsContext(ctx, &orders)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders of route %s: %w", route, err)
	}

	return orders, nil
}

func FindPlannedItems(ctx context.Context, exec repository.Executor, orderIDs []int64) ([]models.PlannedItem, error) {
	if len(orderIDs) == 0 {
		return []models.PlannedItem{}, nil
	}

	var items []models.PlannedItem
	err := exec.
		From(goqu.T("planned_items").As("p")).
		Join(goqu.T("orders").As("o"), goqu.On(goqu.I("p.order_id").Eq(goqu.I("o.id")))).
		Select(
			goqu.I("p.id").As("id"),
			goqu.I("p.order_id").As("order_id"),
			goqu.I("o.order_number").As("order_number"),
			goqu.I("o.dock_code").As("dock_code"),
			goqu.I("p.part_number").As("part_number"),
			goqu.I("p.kanban_number").As("kanban_number"),
			goqu.I("p.qty_per_container").As("qty_per_container"),
			goqu.I("p.total_boxes_planned").As("total_boxes_planned"),
			goqu.I("p.manifest_number").As("manifest_number"),
			goqu.I("p.skid_number").As("skid_number"),
			goqu.I("p.skid_side").As("skid_side"),
			goqu.I("p.palletization_code").As("palletization_code"),
		).
		Where(goqu.I("p.order_id").In(orderIDs)).
		Order(goqu.I("p.id").Asc()).
		Executor().
		ScanStructsContext(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to get planned items: %w", err)
	}

	return items, nil
}

func UpdateStatus(ctx context.Context, exec repository.Executor, id int64, status metadata.OrderStatus) error {
	_, err := exec.Update("orders").
		Set(goqu.Record{"status": status, "updated_at": time.Now()}).
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update status of order %d: %w", id, err)
	}

	return nil
}

// RecordConfirmation stores the OEM confirmation number of a workflow and the
// status it leads to in a single statement.
func RecordConfirmation(ctx context.Context, exec repository.Executor, id int64, w metadata.Workflow, number string, status metadata.OrderStatus) error {
	column := "skid_build_confirmation"
	if w.Loads() {
		column = "shipment_confirmation"
	}

	_, err := exec.Update("orders").
		Set(goqu.Record{column: number, "status": status, "updated_at": time.Now()}).
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to record confirmation of order %d: %w", id, err)
	}

	return nil
}

type OrderDetails struct {
	models.Order
	PlannedItems []models.PlannedItem `json:"planned_items"`
}

type OrderRepository interface {
	GetOrder(ctx context.Context, id int64) (*OrderDetails, error)
	GetOrders(ctx context.Context, qb repository.QueryBuilder) ([]models.Order, error)
}

type orderRepositoryImpl struct {
	repository *repository.Repository
}

func (r *orderRepositoryImpl) GetOrder(ctx context.Context, id int64) (*OrderDetails, error) {
	order, err := FindOrder(ctx, r.repository.GoquDBWrapper, id, false)
	if err != nil {
		return nil, err
	}

	items, err := FindPlannedItems(ctx, r.repository.GoquDBWrapper, []int64{id})
	if err != nil {
		return nil, err
	}

	return &OrderDetails{Order: *order, PlannedItems: items}, nil
}

func (r *orderRepositoryImpl) GetOrders(ctx context.Context, qb repository.QueryBuilder) ([]models.Order, error) {
	orders := []models.Order{}
	err := selectOrders(r.repository.GoquDBWrapper, false).
		Where(qb.BuildConditions(nil)).
		Order(goqu.I("pickup_at").Asc().NullsLast(), goqu.I("id").Asc()).
		Executor().
		ScanStructsContext(ctx, &orders)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return orders, nil
}

func NewRepository(r *repository.Repository) OrderRepository {
	return &orderRepositoryImpl{repository: r}
}
