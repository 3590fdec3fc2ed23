// onboard serves sign in and sign up pages in front of a better-auth
// compatible auth service, and provides the packages it is built from.
//
// Packages:
//   - authclient: a client for the auth service's REST API, plus a test
//     double of that API (StartTestServer).
//   - jwt: verification of the session JWTs the auth service signs.
//   - web: the server rendered onboarding pages.
//   - config: environment and .env configuration.
package onboard
