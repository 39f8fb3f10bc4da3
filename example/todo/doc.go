// Package todo is a small to-do HTTP service built on the persistence layer.
//
// Every request gets its own session; handlers that change data commit explicitly,
// everything else is rolled back when the request ends.
//
// Routes:
//
//	GET    /todos/      list all todos
//	POST   /todos/      create a todo
//	PUT    /todos/{id}  update title and/or completed
//	DELETE /todos/{id}  delete a todo
package todo
