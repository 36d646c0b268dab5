// Package http exposes the room reservation service over JSON/HTTP.
//
// The router exposes the following endpoints:
//   - GET /reservations[?room_id=&date=], POST /reservations, GET /reservations/{id}:
//     reservation endpoints exchanging the `reservationDTO` payload defined in
//     reservation_handler.go. POST answers 201 with {"id","message","reservation"};
//     an overlapping slot answers 400 with error_code RESERVATION_CONFLICT.
//   - GET /rooms, POST /rooms, GET /rooms/{id}, DELETE /rooms/{id}: room catalog
//     endpoints exchanging the `roomDTO` payload defined in room_handler.go.
//     Deleting a room removes its reservations.
//   - GET /employees, POST /employees, GET/PUT/DELETE /employees/{id}: employee
//     endpoints exchanging the `employeeDTO` payload defined in employee_handler.go.
//   - GET /healthz: reports whether the store answers a ping.
//
// Errors are returned as {"error","error_code","errors"} with Spanish messages.
// A store timeout answers 503 with Retry-After so clients know to try again.
package http
