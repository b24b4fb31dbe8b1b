// Package auth provides authentication and authorisation for MOSTwo Core.
//
// Users log in with an email and password and receive a signed JWT access
// token. There are two tiers: regular users, who manage machines and
// events, and superusers, who can also read the audit trail and create
// accounts. Inactive users cannot log in and their tokens are refused.
//
// Passwords are hashed with Argon2id and stored in PHC string format.
package auth
