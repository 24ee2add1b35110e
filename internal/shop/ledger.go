package shop

import "context"

// ListOpenReservations lists reservations still waiting for fulfillment.
func (s *Service) ListOpenReservations(ctx context.Context) ([]ReservationView, error) {
	return s.listReservations(ctx, ReservationFilter{
		Statuses: []ReservationStatus{ReservationPending, ReservationStored},
	})
}

func (s *Service) ListReservationsByUser(ctx context.Context, userID string) ([]ReservationView, error) {
	return s.listReservations(ctx, ReservationFilter{UserID: userID})
}

// ListReservationsBySeller lists reservations of products owned by sellerID.
func (s *Service) ListReservationsBySeller(ctx context.Context, sellerID string) ([]ReservationView, error) {
	return s.listReservations(ctx, ReservationFilter{SellerID: sellerID})
}

func (s *Service) GetReservation(ctx context.Context, id string) (*ReservationView, error) {
	var out *ReservationView
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		r, err := tx.GetReservation(ctx, id)
		out = r
		return err
	})
	return out, err
}

// SetReservationStatus sets any known status on the reservation. Setting the
// current status again is a no-op.
func (s *Service) SetReservationStatus(ctx context.Context, id string, status ReservationStatus) (*ReservationView, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	var out *ReservationView
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		r, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != status {
			if !CanTransition(r.Status, status) {
				return ErrInvalidStatus
			}
			now := s.Now()
			if err := tx.UpdateReservationStatus(ctx, id, status, now); err != nil {
				return err
			}
			r.Status = status
			r.UpdatedAt = now
		}
		out = r
		return nil
	})
	return out, err
}

func (s *Service) MarkReservationPending(ctx context.Context, id string) (*ReservationView, error) {
	return s.SetReservationStatus(ctx, id, ReservationPending)
}

func (s *Service) MarkReservationStored(ctx context.Context, id string) (*ReservationView, error) {
	return s.SetReservationStatus(ctx, id, ReservationStored)
}

func (s *Service) MarkReservationCompleted(ctx context.Context, id string) (*ReservationView, error) {
	return s.SetReservationStatus(ctx, id, ReservationCompleted)
}

func (s *Service) DeleteReservation(ctx context.Context, id string) (*ReservationView, error) {
	var out *ReservationView
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		r, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteReservation(ctx, id); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

func (s *Service) listReservations(ctx context.Context, f ReservationFilter) ([]ReservationView, error) {
	var out []ReservationView
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		rs, err := tx.ListReservations(ctx, f)
		out = rs
		return err
	})
	return out, err
}
