package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rideka/database"
	"rideka/database/repository"
	"rideka/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	bookingColl *mongo.Collection
	rideColl    *mongo.Collection
	refundColl  *mongo.Collection
}

func NewMongoBookingRepo() *MongoBookingRepo {
	return &MongoBookingRepo{
		bookingColl: database.Collection("bookings"),
		rideColl:    database.Collection("rides"),
		refundColl:  database.Collection("refunds"),
	}
}

func (repo *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := repo.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &booking, nil
}

// GetActiveByRideAndUser returns the rider's non-terminal booking on a ride,
// if any. At most one can exist.
func (repo *MongoBookingRepo) GetActiveByRideAndUser(ctx context.Context, rideID, userID string) (*models.Booking, error) {
	filter := bson.M{
		"ride_id": rideID,
		"user_id": userID,
		"status":  bson.M{"$nin": bson.A{models.BookingStatusCancelled, models.BookingStatusCompleted}},
	}
	var booking models.Booking
	err := repo.bookingColl.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch active booking: %w", err)
	}
	return &booking, nil
}

func (repo *MongoBookingRepo) UpdateSeatsAndPickup(ctx context.Context, id string, seats int, pickupName string, pickupTime time.Time) error {
	update := bson.M{"$set": bson.M{
		"seats":             seats,
		"pickup_point_name": pickupName,
		"pickup_time":       pickupTime,
		"updated_at":        time.Now(),
	}}
	res, err := repo.bookingColl.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking seats: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoBookingRepo) SetPaymentOutcome(ctx context.Context, id, paymentStatus, status string) error {
	update := bson.M{"$set": bson.M{
		"payment_status": paymentStatus,
		"status":         status,
		"updated_at":     time.Now(),
	}}
	res, err := repo.bookingColl.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set booking payment outcome: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (repo *MongoBookingRepo) PromoteIfUnpaid(ctx context.Context, id string) (bool, error) {
	filter := bson.M{
		"id":             id,
		"payment_status": bson.M{"$in": bson.A{models.BookingPaymentPending, models.BookingPaymentFailed}},
	}
	update := bson.M{"$set": bson.M{
		"payment_status": models.BookingPaymentCompleted,
		"status":         models.BookingStatusPendingVerification,
		"updated_at":     time.Now(),
	}}
	res, err := repo.bookingColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to promote booking %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

func (repo *MongoBookingRepo) SetPaymentStatusIf(ctx context.Context, id, next string, expected []string) (bool, error) {
	in := bson.A{}
	for _, s := range expected {
		in = append(in, s)
	}
	filter := bson.M{"id": id, "payment_status": bson.M{"$in": in}}
	update := bson.M{"$set": bson.M{"payment_status": next, "updated_at": time.Now()}}
	res, err := repo.bookingColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to set booking payment status: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (repo *MongoBookingRepo) SetVerificationCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	update := bson.M{"$set": bson.M{
		"verification_code": code,
		"code_expires_at":   expiresAt,
		"code_verified":     false,
		"updated_at":        time.Now(),
	}}
	res, err := repo.bookingColl.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set verification code: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// VerifyCode flips code_verified in the same conditional update that checks
// the code, so two concurrent verification calls cannot both succeed.
func (repo *MongoBookingRepo) VerifyCode(ctx context.Context, id, code string) (bool, error) {
	filter := bson.M{
		"id":                id,
		"verification_code": code,
		"code_verified":     false,
		"code_expires_at":   bson.M{"$gt": time.Now()},
	}
	update := bson.M{"$set": bson.M{
		"code_verified": true,
		"status":        models.BookingStatusConfirmed,
		"updated_at":    time.Now(),
	}}
	res, err := repo.bookingColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to verify code for booking %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

func (repo *MongoBookingRepo) SetStatus(ctx context.Context, id, status string) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	res, err := repo.bookingColl.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set booking status: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
