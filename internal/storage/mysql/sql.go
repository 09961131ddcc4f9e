package mysql

// -----------------------------------------------------------------------------
// ROOMS & RATES
// -----------------------------------------------------------------------------

const roomCols = `id, code, name, capacity, units, base_price, active, created_at, updated_at`

const insertRoomSQL = `
INSERT INTO rooms (code, name, capacity, units, base_price, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const updateRoomSQL = `
UPDATE rooms
SET code = ?, name = ?, capacity = ?, units = ?, base_price = ?, active = ?, updated_at = ?
WHERE id = ?
`

const policyCols = `id, code, name, refundable, cancellation_days, prepay_percent, markup_percent, active, created_at, updated_at`

const insertPolicySQL = `
INSERT INTO rate_policies
  (code, name, refundable, cancellation_days, prepay_percent, markup_percent, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updatePolicySQL = `
UPDATE rate_policies
SET code = ?, name = ?, refundable = ?, cancellation_days = ?, prepay_percent = ?,
    markup_percent = ?, active = ?, updated_at = ?
WHERE id = ?
`

const insertAssignmentSQL = `
INSERT INTO policy_assignments (room_id, policy_id, from_day, to_day) VALUES (?, ?, ?, ?)
`

const listAssignmentsSQL = `
SELECT id, room_id, policy_id, from_day, to_day FROM policy_assignments WHERE room_id = ? ORDER BY id
`

const insertOverridesPrefix = "INSERT INTO price_overrides (room_id, day, price, min_stay, closed)\nVALUES "

const insertOverridesOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  price    = VALUES(price),\n" +
	"  min_stay = VALUES(min_stay),\n" +
	"  closed   = VALUES(closed)\n"

const listOverridesSQL = `
SELECT room_id, day, price, min_stay, closed
FROM price_overrides
WHERE room_id = ? AND day >= ? AND day < ?
ORDER BY day
`

// -----------------------------------------------------------------------------
// BOOKINGS & PAYMENTS
// -----------------------------------------------------------------------------

const bookingCols = `id, reference, room_id, policy_id, first_name, last_name, email, phone, adults, children,
  check_in, check_out, status, source, external_id, total, prepay, currency, notes, created_at, updated_at`

const insertBookingSQL = `
INSERT INTO bookings
  (reference, room_id, policy_id, first_name, last_name, email, phone, adults, children,
   check_in, check_out, status, source, external_id, total, prepay, currency, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateBookingSQL = `
UPDATE bookings
SET room_id = ?, policy_id = ?, first_name = ?, last_name = ?, email = ?, phone = ?, adults = ?, children = ?,
    check_in = ?, check_out = ?, status = ?, total = ?, prepay = ?, notes = ?, updated_at = ?
WHERE id = ?
`

const setBookingStatusSQL = `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

// Row lock on the room serialises concurrent bookings of the same room type.
const lockRoomSQL = `SELECT id FROM rooms WHERE id = ? FOR UPDATE`

const overlappingBookingsSQL = `
SELECT ` + bookingCols + `
FROM bookings
WHERE room_id = ? AND check_in < ? AND check_out > ? AND status IN ('pending','confirmed','checked_in')
`

// Row lock on the booking serialises payments against its ledger.
const lockBookingSQL = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ? FOR UPDATE`

const paymentCols = `id, booking_id, kind, method, amount, status, reference, recorded_by, received_at, created_at`

const insertPaymentSQL = `
INSERT INTO payments (booking_id, kind, method, amount, status, reference, recorded_by, received_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const paymentByReferenceSQL = `SELECT ` + paymentCols + ` FROM payments WHERE booking_id = ? AND reference = ?`

const listPaymentsSQL = `SELECT ` + paymentCols + ` FROM payments WHERE booking_id = ? ORDER BY id`

const listPaymentsReceivedSQL = `
SELECT ` + paymentCols + `
FROM payments
WHERE method = ? AND received_at >= ? AND received_at < ?
ORDER BY id
`

// -----------------------------------------------------------------------------
// CASH, CHECK-IN, WEDDINGS
// -----------------------------------------------------------------------------

const depositCols = `id, business_date, expected, counted, discrepancy, status, submitted_by, reviewed_by,
  note, reject_reason, submitted_at, reviewed_at, created_at, updated_at`

const insertDepositSQL = `
INSERT INTO cash_deposits
  (business_date, expected, counted, discrepancy, status, submitted_by, reviewed_by, note, reject_reason,
   submitted_at, reviewed_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateDepositSQL = `
UPDATE cash_deposits
SET expected = ?, counted = ?, discrepancy = ?, status = ?, submitted_by = ?, reviewed_by = ?, note = ?,
    reject_reason = ?, submitted_at = ?, reviewed_at = ?, updated_at = ?
WHERE id = ? AND status = ?
`

const upsertCheckinSQL = `
INSERT INTO online_checkins
  (booking_id, status, document_type, document_number, nationality, date_of_birth, address, arrival_time,
   additional_guests, terms_accepted, submitted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  status            = VALUES(status),
  document_type     = VALUES(document_type),
  document_number   = VALUES(document_number),
  nationality       = VALUES(nationality),
  date_of_birth     = VALUES(date_of_birth),
  address           = VALUES(address),
  arrival_time      = VALUES(arrival_time),
  additional_guests = VALUES(additional_guests),
  terms_accepted    = VALUES(terms_accepted),
  submitted_at      = VALUES(submitted_at)
`

const getCheckinSQL = `
SELECT booking_id, status, document_type, document_number, nationality, date_of_birth, address, arrival_time,
  additional_guests, terms_accepted, submitted_at
FROM online_checkins WHERE booking_id = ?
`

const proposalCols = `id, token, couple_names, email, event_date, guest_count, items, total, deposit_percent,
  deposit, valid_until, status, couple_comment, created_at, updated_at`

const insertProposalSQL = `
INSERT INTO wedding_proposals
  (token, couple_names, email, event_date, guest_count, items, total, deposit_percent, deposit, valid_until,
   status, couple_comment, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateProposalSQL = `
UPDATE wedding_proposals
SET couple_names = ?, email = ?, event_date = ?, guest_count = ?, items = ?, total = ?, deposit_percent = ?,
    deposit = ?, valid_until = ?, status = ?, couple_comment = ?, updated_at = ?
WHERE id = ? AND status = ?
`

// -----------------------------------------------------------------------------
// CHANNEL
// -----------------------------------------------------------------------------

const mappingCols = `id, room_id, beds24_property_id, beds24_room_id, active, created_at`

const insertMappingSQL = `
INSERT INTO room_mappings (room_id, beds24_property_id, beds24_room_id, active, created_at)
VALUES (?, ?, ?, ?, ?)
`

const insertSyncLogSQL = `
INSERT INTO sync_logs (direction, room_id, from_day, to_day, ok, detail, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const listSyncLogsSQL = `
SELECT id, direction, room_id, from_day, to_day, ok, detail, created_at
FROM sync_logs ORDER BY id DESC LIMIT ?
`

const upsertCursorSQL = `
INSERT INTO sync_cursors (name, at) VALUES (?, ?)
ON DUPLICATE KEY UPDATE at = VALUES(at)
`
