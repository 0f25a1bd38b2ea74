package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rideka/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// runTransaction wraps fn in a Mongo session transaction.
func (repo *MongoBookingRepo) runTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	client := repo.bookingColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	})
}

var errInsufficientSeats = errors.New("not enough seats available")

// takeSeats conditionally decrements seats_available; the filter guarantees
// the ride never goes negative under concurrent reservations. A non-positive
// delta restores seats instead and cannot fail on capacity.
func (repo *MongoBookingRepo) takeSeats(sc mongo.SessionContext, rideID string, delta int) error {
	filter := bson.M{"id": rideID}
	if delta > 0 {
		// Taking seats needs a live ride with capacity. Restoring them
		// must keep working after the ride was cancelled, or riders on a
		// cancelled ride could never cancel and be refunded.
		filter["status"] = models.RideStatusActive
		filter["seats_available"] = bson.M{"$gte": delta}
	}
	update := bson.M{
		"$inc": bson.M{"seats_available": -delta},
		"$set": bson.M{"updated_at": time.Now()},
	}
	res, err := repo.rideColl.UpdateOne(sc, filter, update)
	if err != nil {
		return fmt.Errorf("seat adjustment failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return errInsufficientSeats
	}
	return nil
}

// ReserveSeats is the single owner of the "confirmed seats <= capacity"
// invariant. Everything runs in one transaction so concurrent requests for
// the same ride serialize on the ride document.
func (repo *MongoBookingRepo) ReserveSeats(ctx context.Context, rideID, userID string, seats int, bookingID *string) (*ReservationResult, error) {
	if seats <= 0 {
		return &ReservationResult{Success: false, ErrorMessage: "seats must be positive"}, nil
	}

	result := &ReservationResult{}
	txn := func(sc mongo.SessionContext) error {
		if bookingID == nil {
			newID := uuid.New().String()
			if err := repo.takeSeats(sc, rideID, seats); err != nil {
				return err
			}
			now := time.Now()
			booking := models.Booking{
				ID:            newID,
				RideID:        rideID,
				UserID:        userID,
				Seats:         seats,
				Status:        models.BookingStatusPending,
				PaymentStatus: models.BookingPaymentPending,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if _, err := repo.bookingColl.InsertOne(sc, booking); err != nil {
				return fmt.Errorf("insert booking failed: %w", err)
			}
			result.BookingID = newID
			return nil
		}

		var existing models.Booking
		if err := repo.bookingColl.FindOne(sc, bson.M{"id": *bookingID}).Decode(&existing); err != nil {
			return fmt.Errorf("existing booking lookup failed: %w", err)
		}
		if existing.IsTerminal() {
			return errors.New("booking is no longer active")
		}
		delta := seats - existing.Seats
		if delta != 0 {
			if err := repo.takeSeats(sc, rideID, delta); err != nil {
				return err
			}
		}
		update := bson.M{"$set": bson.M{"seats": seats, "updated_at": time.Now()}}
		if _, err := repo.bookingColl.UpdateOne(sc, bson.M{"id": *bookingID}, update); err != nil {
			return fmt.Errorf("update booking failed: %w", err)
		}
		result.BookingID = *bookingID
		return nil
	}

	if err := repo.runTransaction(ctx, txn); err != nil {
		if errors.Is(err, errInsufficientSeats) {
			return &ReservationResult{Success: false, ErrorMessage: "not enough seats available"}, nil
		}
		return nil, fmt.Errorf("reservation transaction failed: %w", err)
	}
	result.Success = true
	return result, nil
}

// CancelAndRestoreSeats cancels a booking and gives its seats back in one
// transaction. Already-terminal bookings are left untouched.
func (repo *MongoBookingRepo) CancelAndRestoreSeats(ctx context.Context, bookingID string) (bool, error) {
	cancelled := false
	txn := func(sc mongo.SessionContext) error {
		filter := bson.M{
			"id":     bookingID,
			"status": bson.M{"$nin": bson.A{models.BookingStatusCancelled, models.BookingStatusCompleted}},
		}
		var booking models.Booking
		if err := repo.bookingColl.FindOne(sc, filter).Decode(&booking); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil
			}
			return fmt.Errorf("booking lookup failed: %w", err)
		}

		update := bson.M{"$set": bson.M{"status": models.BookingStatusCancelled, "updated_at": time.Now()}}
		if _, err := repo.bookingColl.UpdateOne(sc, bson.M{"id": bookingID}, update); err != nil {
			return fmt.Errorf("cancel booking failed: %w", err)
		}
		if err := repo.takeSeats(sc, booking.RideID, -booking.Seats); err != nil {
			return err
		}
		cancelled = true
		return nil
	}

	if err := repo.runTransaction(ctx, txn); err != nil {
		return false, fmt.Errorf("cancel transaction failed: %w", err)
	}
	return cancelled, nil
}

// CancelWithRefundPreparation cancels a paid booking, restores its seats and
// inserts a pending refund record atomically. The external refund call
// happens outside this transaction; its failure never undoes the
// cancellation.
func (repo *MongoBookingRepo) CancelWithRefundPreparation(ctx context.Context, args CancelWithRefundArgs) (*CancelWithRefundResult, error) {
	result := &CancelWithRefundResult{}
	refundID := uuid.New().String()

	txn := func(sc mongo.SessionContext) error {
		filter := bson.M{
			"id":      args.BookingID,
			"user_id": args.UserID,
			"status":  bson.M{"$nin": bson.A{models.BookingStatusCancelled, models.BookingStatusCompleted}},
		}
		var booking models.Booking
		if err := repo.bookingColl.FindOne(sc, filter).Decode(&booking); err != nil {
			result.DebugInfo = "booking lookup"
			if errors.Is(err, mongo.ErrNoDocuments) {
				return errors.New("booking not found or not cancellable")
			}
			return fmt.Errorf("booking lookup failed: %w", err)
		}

		restore := -booking.Seats
		update := bson.M{"$set": bson.M{
			"status":     models.BookingStatusCancelled,
			"updated_at": time.Now(),
		}}
		if _, err := repo.bookingColl.UpdateOne(sc, bson.M{"id": args.BookingID}, update); err != nil {
			result.DebugInfo = "booking cancel"
			return fmt.Errorf("cancel booking failed: %w", err)
		}
		if err := repo.takeSeats(sc, booking.RideID, restore); err != nil {
			result.DebugInfo = "seat restore"
			return err
		}

		now := time.Now()
		refund := models.Refund{
			ID:          refundID,
			BookingID:   args.BookingID,
			UserID:      args.UserID,
			PaymentIDs:  args.PaymentIDs,
			Type:        args.RefundType,
			Amount:      args.Amount,
			Currency:    args.Currency,
			Provider:    args.Provider,
			PhoneNumber: args.PhoneNumber,
			Status:      models.PaymentStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := repo.refundColl.InsertOne(sc, refund); err != nil {
			result.DebugInfo = "refund insert"
			return fmt.Errorf("insert refund failed: %w", err)
		}
		result.BookingCancelled = true
		result.RefundID = refundID
		return nil
	}

	if err := repo.runTransaction(ctx, txn); err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
		return result, nil
	}
	result.Success = true
	return result, nil
}
