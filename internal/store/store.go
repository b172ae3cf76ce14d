package store

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/warefront/fieldsync/internal/database"
	"github.com/warefront/fieldsync/internal/models"
)

// Store holds the read-only ERP snapshot tables. Each sync cycle replaces a
// table wholesale: delete everything, reinsert the fresh snapshot, one
// transaction. Readers are guarded: a read failure is logged and surfaces as
// an empty result so list screens degrade instead of crashing mid-shift.
type Store struct {
	db *database.DB
}

// New creates a snapshot store over the local database.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// setEntitiesTx replaces the full contents of one snapshot table inside an
// existing transaction.
func setEntitiesTx[T any](tx *gorm.DB, rows []T) error {
	var zero T
	if err := tx.Where("1 = 1").Delete(&zero).Error; err != nil {
		return fmt.Errorf("failed to clear snapshot table: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert snapshot rows: %w", err)
	}
	return nil
}

// setEntities replaces the full contents of one snapshot table.
func setEntities[T any](db *database.DB, rows []T) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return setEntitiesTx(tx, rows)
	})
}

// SetBranches replaces the branch list.
func (s *Store) SetBranches(rows []models.Branch) error {
	return setEntities(s.db, rows)
}

// SetSalesOrders replaces the sales order headers.
func (s *Store) SetSalesOrders(rows []models.SalesOrder) error {
	return setEntities(s.db, rows)
}

// SetSalesOrderItems replaces the sales order lines.
func (s *Store) SetSalesOrderItems(rows []models.SalesOrderItem) error {
	return setEntities(s.db, rows)
}

// SetLots replaces the lot inventory.
func (s *Store) SetLots(rows []models.Lot) error {
	return setEntities(s.db, rows)
}

// SetInboundShipments replaces the open purchase order lines.
func (s *Store) SetInboundShipments(rows []models.InboundShipment) error {
	return setEntities(s.db, rows)
}

// SetInboundTransfers replaces the open transfer lines.
func (s *Store) SetInboundTransfers(rows []models.InboundTransfer) error {
	return setEntities(s.db, rows)
}

// ApplySnapshot replaces every per-branch snapshot table in one transaction,
// so a failure part-way never leaves orders without their lines. Branches
// are global and refreshed separately via SetBranches.
func (s *Store) ApplySnapshot(orders []models.SalesOrder, items []models.SalesOrderItem,
	lots []models.Lot, shipments []models.InboundShipment, transfers []models.InboundTransfer) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := setEntitiesTx(tx, orders); err != nil {
			return err
		}
		if err := setEntitiesTx(tx, items); err != nil {
			return err
		}
		if err := setEntitiesTx(tx, lots); err != nil {
			return err
		}
		if err := setEntitiesTx(tx, shipments); err != nil {
			return err
		}
		return setEntitiesTx(tx, transfers)
	})
}

// guarded logs a read failure and returns the empty slice.
func guarded[T any](what string, rows []T, err error) []T {
	if err != nil {
		log.Printf("⚠️ Failed to read %s: %v", what, err)
		return nil
	}
	return rows
}

// Branches returns all known branches.
func (s *Store) Branches() []models.Branch {
	var rows []models.Branch
	err := s.db.Order("branch_id asc").Find(&rows).Error
	return guarded("branches", rows, err)
}

// SalesOrders returns every sales order header in the snapshot.
func (s *Store) SalesOrders() []models.SalesOrder {
	var rows []models.SalesOrder
	err := s.db.Order("sales_order_number asc").Find(&rows).Error
	return guarded("sales orders", rows, err)
}

// SalesOrder returns one order header, nil when absent.
func (s *Store) SalesOrder(number string) *models.SalesOrder {
	var row models.SalesOrder
	err := s.db.First(&row, "sales_order_number = ?", number).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("⚠️ Failed to read sales order %s: %v", number, err)
		}
		return nil
	}
	return &row
}

// SalesOrderItems returns the lines of one order.
func (s *Store) SalesOrderItems(orderNumber string) []models.SalesOrderItem {
	var rows []models.SalesOrderItem
	err := s.db.Where("sales_order_number = ?", orderNumber).Order("seq asc").Find(&rows).Error
	return guarded("sales order items", rows, err)
}

// AllSalesOrderItems returns every line in the snapshot.
func (s *Store) AllSalesOrderItems() []models.SalesOrderItem {
	var rows []models.SalesOrderItem
	err := s.db.Order("sales_order_number asc, seq asc").Find(&rows).Error
	return guarded("sales order items", rows, err)
}

// Lots returns the lots available for one item.
func (s *Store) Lots(itemNumber string) []models.Lot {
	var rows []models.Lot
	err := s.db.Where("item_number = ?", itemNumber).Order("lot_number asc").Find(&rows).Error
	return guarded("lots", rows, err)
}

// InboundShipments returns the open purchase order lines.
func (s *Store) InboundShipments() []models.InboundShipment {
	var rows []models.InboundShipment
	err := s.db.Order("document_number asc, line_num asc").Find(&rows).Error
	return guarded("inbound shipments", rows, err)
}

// InboundShipmentLines returns the open lines of one purchase order.
func (s *Store) InboundShipmentLines(documentNumber string) []models.InboundShipment {
	var rows []models.InboundShipment
	err := s.db.Where("document_number = ?", documentNumber).Order("line_num asc").Find(&rows).Error
	return guarded("inbound shipment lines", rows, err)
}

// InboundTransfers returns the open transfer lines.
func (s *Store) InboundTransfers() []models.InboundTransfer {
	var rows []models.InboundTransfer
	err := s.db.Order("transfer_number asc, seq asc").Find(&rows).Error
	return guarded("inbound transfers", rows, err)
}

// InboundTransferLines returns the open lines of one transfer.
func (s *Store) InboundTransferLines(transferNumber string) []models.InboundTransfer {
	var rows []models.InboundTransfer
	err := s.db.Where("transfer_number = ?", transferNumber).Order("seq asc").Find(&rows).Error
	return guarded("inbound transfer lines", rows, err)
}

// Purge wipes every snapshot table.
func (s *Store) Purge() error {
	for _, zero := range []interface{}{
		&models.Branch{}, &models.SalesOrder{}, &models.SalesOrderItem{},
		&models.Lot{}, &models.InboundShipment{}, &models.InboundTransfer{},
	} {
		if err := s.db.Where("1 = 1").Delete(zero).Error; err != nil {
			return fmt.Errorf("failed to purge snapshot table: %w", err)
		}
	}
	return nil
}
